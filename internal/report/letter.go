package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/stwalsh4118/parcelpicker/internal/aggregate"
)

// ErrUnknownVariant is returned for a letter kind that has no template.
var ErrUnknownVariant = errors.New("unknown letter kind")

// Kind names a letter variant.
type Kind string

const (
	// KindInquiry asks the borough architecture department about permits.
	KindInquiry Kind = "inquiry"
	// KindEnforcement asks the building inspectorate to act.
	KindEnforcement Kind = "enforcement"
)

// ParseKind validates a letter kind name.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case KindInquiry, KindEnforcement:
		return Kind(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
}

// DateLayout formats the letter date and its filename suffix.
const DateLayout = "2006-01-02"

// ItemSeparator joins the parcel phrases of a letter body.
const ItemSeparator = ";\n• "

// Variant is the template and recipient strategy of one letter kind.
type Variant struct {
	Kind      Kind
	Prefix    string
	Recipient func(borough string) string
	Template  *template.Template
}

// LetterData is what a letter template renders.
type LetterData struct {
	Recipient string
	Borough   string
	Date      string
	Items     []string
	Body      string
}

var inquiryTemplate = template.Must(template.New(string(KindInquiry)).Parse(`To: {{.Recipient}}
Architecture and Construction Department, {{.Borough}} District Office
Date: {{.Date}}

Subject: Request for information on advertising structures in {{.Borough}}

Dear Sir or Madam,

Under the Act on Access to Public Information I request information on whether
building permits were issued or construction notifications accepted for the
advertising structures listed below, located in {{.Borough}}:

{{.Body}}

For each structure please state the decision or notification reference number
and its date, or confirm that no such proceedings took place.

I ask for the reply to be sent by electronic mail.

Yours faithfully,
`))

var enforcementTemplate = template.Must(template.New(string(KindEnforcement)).Parse(`To: {{.Recipient}}
District Building Inspectorate
Date: {{.Date}}

Subject: Request to inspect advertising structures in {{.Borough}}

Dear Sir or Madam,

I request proceedings to verify the legality of the advertising structures listed
below, located in {{.Borough}}:

{{.Body}}

The Architecture and Construction Department of the {{.Borough}} District Office
has been asked whether permits or notifications exist for these structures.
Where none exist, I request that the structures be treated as built without
the required approval.

Yours faithfully,
`))

// InquiryVariant writes to each borough's architecture department, resolved through dir.
func InquiryVariant(dir Directory) Variant {
	return Variant{
		Kind:      KindInquiry,
		Prefix:    "WAiB",
		Recipient: dir.RecipientOrPlaceholder,
		Template:  inquiryTemplate,
	}
}

// EnforcementVariant writes every letter to the same building inspectorate mailbox.
func EnforcementVariant(recipient string) Variant {
	return Variant{
		Kind:      KindEnforcement,
		Prefix:    "PINB",
		Recipient: func(string) string { return recipient },
		Template:  enforcementTemplate,
	}
}

// LetterGenerator renders one letter per borough for a variant.
type LetterGenerator struct {
	variant Variant
	dir     Directory
	clock   func() time.Time
}

// NewLetterGenerator creates a generator. dir supplies borough display names.
func NewLetterGenerator(v Variant, dir Directory, clock func() time.Time) *LetterGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &LetterGenerator{variant: v, dir: dir, clock: clock}
}

// Generate returns one text artifact per borough, in aggregation order.
func (g *LetterGenerator) Generate(groups *aggregate.Groups) ([]Artifact, error) {
	date := g.clock().Format(DateLayout)
	boroughs := groups.Boroughs()
	artifacts := make([]Artifact, 0, len(boroughs))
	names := nameSet{}

	for _, b := range boroughs {
		display := g.dir.DisplayName(b.Name)
		items := Phrases(b.Entries())

		data := LetterData{
			Recipient: g.variant.Recipient(b.Name),
			Borough:   display,
			Date:      date,
			Items:     items,
			Body:      "• " + strings.Join(items, ItemSeparator) + ".",
		}

		var buf bytes.Buffer
		if err := g.variant.Template.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render %s letter for %q: %w", g.variant.Kind, b.Name, err)
		}

		artifacts = append(artifacts, Artifact{
			Filename:    names.unique(LetterFilename(g.variant.Prefix, display, date)),
			ContentType: ContentTypeText,
			Content:     buf.Bytes(),
		})
	}

	return artifacts, nil
}

// Phrases describes each unique parcel, e.g. "2 billboards on parcel no. 12 in precinct Wola".
func Phrases(entries []aggregate.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		noun := "billboard"
		if e.Count > 1 {
			noun = "billboards"
		}
		out = append(out, fmt.Sprintf("%d %s on parcel no. %s in precinct %s", e.Count, noun, e.PlotNumber, e.Precinct))
	}
	return out
}

// LetterFilename is <PREFIX>_<borough>_<YYYY-MM-DD>.txt, with the borough passed
// through SafeName.
func LetterFilename(prefix, borough, date string) string {
	return prefix + "_" + SafeName(borough) + "_" + date + ".txt"
}
