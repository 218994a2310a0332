// Package risk implements Acuity's risk-stratification engine. It turns a
// normalized situational snapshot (Context) into an ordinal risk tier, a
// bounded numeric score, a confidence interval, and itemized evidence.
//
// The pipeline is: safety rules first (hard overrides), then the composite
// clinical calculators (which may also short-circuit on immediate escalation),
// then the rule-based scorer and the ensemble scorers concurrently, joined by
// the synthesizer. It always returns a complete Result and never surfaces an
// error to the caller; degraded inputs degrade the answer, not the contract.
package risk
