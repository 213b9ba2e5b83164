package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"payrelay/internal/detect"
)

const (
	fallbackValue        = "N/A"
	fallbackCustomerName = "Cliente"
	withdrawalSelfName   = "Você"

	renderTimeLayout = "02/01/2006 15:04:05"
)

// Renderer substitutes the fixed placeholder vocabulary into notification
// templates. Unknown placeholders are left verbatim. The only
// non-deterministic input is the clock behind {DATA}, which always reflects
// render time, not when the event occurred.
type Renderer struct {
	now func() time.Time
}

func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// NewRendererWithClock pins the {DATA} placeholder, for tests.
func NewRendererWithClock(now func() time.Time) *Renderer {
	return &Renderer{now: now}
}

func (r *Renderer) Render(template string, ev detect.Event) string {
	var (
		amount       int64
		id           string
		name         = fallbackValue
		email        = fallbackValue
		document     = fallbackValue
		method       = fallbackValue
		installments = 1
	)

	switch {
	case ev.Withdrawal != nil:
		amount = ev.Withdrawal.Amount
		id = ev.Withdrawal.ID
		name = withdrawalSelfName
	case ev.Transaction != nil:
		t := ev.Transaction
		amount = t.Amount
		id = t.ID
		name = fallbackCustomerName
		if t.Customer != nil {
			if t.Customer.Name != "" {
				name = t.Customer.Name
			}
			if t.Customer.Email != "" {
				email = t.Customer.Email
			}
			if t.Customer.Document != "" {
				document = t.Customer.Document
			}
		}
		if t.PaymentMethod != "" {
			method = t.PaymentMethod
		}
		if t.Installments > 0 {
			installments = t.Installments
		}
	}

	replacer := strings.NewReplacer(
		"{VALOR}", "R$ "+FormatAmount(amount),
		"{CLIENTE}", name,
		"{EMAIL}", email,
		"{DOCUMENTO}", document,
		"{METODO}", method,
		"{ID}", id,
		"{DATA}", r.now().Format(renderTimeLayout),
		"{PARCELAS}", strconv.Itoa(installments),
	)

	return replacer.Replace(template)
}

// FormatAmount renders minor currency units with two decimals, e.g. 10000
// becomes "100.00".
func FormatAmount(minorUnits int64) string {
	sign := ""
	if minorUnits < 0 {
		sign = "-"
		minorUnits = -minorUnits
	}
	return fmt.Sprintf("%s%d.%02d", sign, minorUnits/100, minorUnits%100)
}
