// Package explain turns a completed assessment into a plain-language
// narrative for the clinician reviewing it. The narrative never changes the
// verdict; it only describes it.
package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/acuity/internal/assessment"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

const systemPrompt = `You are a clinical documentation assistant for a pediatric
symptom assessment service. You receive a structured risk verdict and write a
short narrative for the reviewing clinician: what the verdict is, which findings
drove it, and what information was missing. Be factual and concise. Do not
invent findings, do not soften or escalate the stated risk tier, and do not
give treatment advice.`

// Provider is the LLM backend the explainer talks to.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Explainer renders assessment verdicts into narratives via a Provider.
type Explainer struct {
	provider Provider
	logger   log.Logger
}

// New creates an Explainer over the given provider.
func New(provider Provider, logger log.Logger) *Explainer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Explainer{provider: provider, logger: logger}
}

// Explain implements assessment.Explainer.
func (e *Explainer) Explain(ctx context.Context, a *assessment.Assessment) (string, error) {
	if a.Result == nil {
		return "", xerrors.New("assessment has no verdict to explain")
	}

	text, err := e.provider.Complete(ctx, systemPrompt, BuildPrompt(a))
	if err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", xerrors.New("provider returned an empty narrative")
	}
	return text, nil
}

// BuildPrompt renders the verdict into the prompt the provider receives.
// Everything the narrative may reference must be listed here; the model is
// instructed not to go beyond it.
func BuildPrompt(a *assessment.Assessment) string {
	r := a.Result

	var b strings.Builder
	fmt.Fprintf(&b, "Risk tier: %s\n", r.Tier)
	fmt.Fprintf(&b, "Risk score: %.2f (confidence %.2f, interval %.2f-%.2f)\n",
		r.Score, r.Confidence, r.Interval.Lower, r.Interval.Upper)

	if a.Context != nil {
		d := a.Context.Demographics
		if d.AgeMonths > 0 {
			fmt.Fprintf(&b, "Patient age: %d months\n", d.AgeMonths)
		}
		if len(a.Context.Symptoms) > 0 {
			fmt.Fprintf(&b, "Reported symptoms: %s\n", strings.Join(a.Context.Symptoms, ", "))
		}
	}

	writeList(&b, "Triggered rules", r.TriggeredRules)
	writeList(&b, "Risk factors", r.RiskFactors)
	writeList(&b, "Protective factors", r.ProtectiveFactors)
	writeList(&b, "Uncertainty factors", r.UncertaintyFactors)
	writeList(&b, "Missing data", r.MissingData)

	if r.Clinical != nil {
		for _, cs := range r.Clinical.Calculators {
			fmt.Fprintf(&b, "Clinical score %s: %.0f/%.0f", cs.Name, cs.Score, cs.Max)
			if cs.Critical {
				b.WriteString(" (critical)")
			} else if cs.Elevated {
				b.WriteString(" (elevated)")
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nWrite a 2-4 sentence narrative of this verdict for the reviewing clinician.")
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(items, "; "))
}
