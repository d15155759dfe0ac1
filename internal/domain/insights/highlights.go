package insights

import "fmt"

// highlights creates human-readable highlights
func highlights(r *Report) []string {
	var out []string

	// Net position
	net := r.Overview.Net
	if net.IsNegative() {
		out = append(out, fmt.Sprintf("You spent %s more than you received", net.Abs().Display()))
	} else if !net.IsZero() {
		out = append(out, fmt.Sprintf("You received %s more than you spent", net.Display()))
	}

	if len(r.TopOutgoingByValue) > 0 {
		top := r.TopOutgoingByValue[0]
		out = append(out, fmt.Sprintf("Top spending: %s (%s)", top.Category, top.Amount.Display()))
	}

	if len(r.TopRecipients) > 0 {
		top := r.TopRecipients[0]
		out = append(out, fmt.Sprintf("You sent the most to %s (%s over %d transfers)", top.Name, top.Total.Display(), top.Count))
	}

	var charges int64
	for _, c := range r.Charges {
		charges += c.Amount.Amount()
	}
	if charges > 0 {
		out = append(out, fmt.Sprintf("Transaction charges cost you %s", kes(charges)))
	}

	if r.Overview.Excluded > 0 {
		out = append(out, fmt.Sprintf("%d transactions had both or neither of Paid In and Withdrawn and were left out", r.Overview.Excluded))
	}

	return out
}
