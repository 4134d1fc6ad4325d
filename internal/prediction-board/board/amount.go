package board

import (
	"math"
	"net/url"

	"github.com/shopspring/decimal"
)

// AmountLoading é o sentinela exibido enquanto a cotação não é conhecida.
const AmountLoading = "Loading..."

const qrImageEndpoint = "https://api.qrserver.com/v1/create-qr-code/?size=150x150&data="

// Amount é o valor em BCH de um ticket. O zero value é o sentinela "loading".
type Amount struct {
	value decimal.Decimal
	ready bool
}

// RequiredAmount converte stake (USD) em BCH pela cotação, com 8 casas.
// rate <= 0 (ou não finito) significa cotação desconhecida.
func RequiredAmount(stake decimal.Decimal, rate float64) Amount {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Amount{}
	}
	return Amount{value: stake.Div(decimal.NewFromFloat(rate)).Round(8), ready: true}
}

// Ready informa se o valor é numérico (e não o sentinela).
func (a Amount) Ready() bool { return a.ready }

// Positive é a condição para montar a URI de pagamento.
func (a Amount) Positive() bool { return a.ready && a.value.IsPositive() }

// Decimal devolve o valor; zero quando não está pronto.
func (a Amount) Decimal() decimal.Decimal { return a.value }

// Times devolve o valor para n tickets.
func (a Amount) Times(n int64) Amount {
	if !a.ready {
		return a
	}
	return Amount{value: a.value.Mul(decimal.NewFromInt(n)), ready: true}
}

func (a Amount) String() string {
	if !a.ready {
		return AmountLoading
	}
	return a.value.StringFixed(8)
}

// PaymentURI monta "endereço?amount=valor" só quando há endereço e valor
// positivo; caso contrário devolve "".
func PaymentURI(address string, amount Amount) string {
	if address == "" || !amount.Positive() {
		return ""
	}
	return address + "?amount=" + amount.String()
}

// QRImageURL é a requisição de imagem QR do serviço externo para a URI.
func QRImageURL(paymentURI string) string {
	if paymentURI == "" {
		return ""
	}
	return qrImageEndpoint + url.QueryEscape(paymentURI)
}
