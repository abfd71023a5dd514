package utils_test

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/ArkLabsHQ/lnwatch/utils"
	"github.com/stretchr/testify/require"
)

var (
	invoice         = "lnbc15u1p3xnhl2pp5jptserfk3zk4qy42tlucycrfwxhydvlemu9pqr93tuzlv9cc7g3sdqsvfhkcap3xyhx7un8cqzpgxqzjcsp5f8c52y2stc300gl6s4xswtjpc37hrnnr3c9wvtgjfuvqmpm35evq9qyyssqy4lgd8tj637qcjp05rdpxxykjenthxftej7a2zzmwrmrl70fyj9hvj0rewhzj7jfyuwkwcg9g2jpwtk3wkjtwnkdks84hsnu8xps5vsq4gj5hs"
	invoicePayHash  = "90570c8d3688ad5012aa5ff982606971ae46b3f9df0a100cb15f05f61718f223"
	invoicePayee    = "03d6b14390cd178d670aa2d57c93d9519feaae7d1e34264d8bbb7932d47b75a50d"
	invoiceAmount   = int64(1500)
	invoiceDeadline = time.Unix(1651105770+600, 0)
	mnemonic        = "reward liar quote property federal print outdoor attitude satoshi favorite special layer"
)

func TestUtils(t *testing.T) {
	testInvoices(t)
	testSecrets(t)
	testIsValidUrls(t)
	testValidateUrls(t)
	testRetry(t)
}

func testInvoices(t *testing.T) {
	t.Run("invoices", func(t *testing.T) {
		decoded, err := utils.DecodeInvoice(invoice)
		require.NoError(t, err)
		require.Equal(t, invoiceAmount, decoded.AmountSats)
		require.Equal(t, invoicePayHash, hex.EncodeToString(decoded.PaymentHash))
		require.Equal(t, "bolt11.org", decoded.Description)
		require.Equal(t, invoicePayee, decoded.Payee)
		require.Equal(t, invoiceDeadline, decoded.ExpiresAt)
		require.True(t, decoded.IsExpired(time.Now()))
		require.False(t, decoded.IsExpired(invoiceDeadline.Add(-time.Second)))

		_, err = utils.DecodeInvoice("lnbc1234Invalid")
		require.Error(t, err)

		require.Equal(t, invoiceAmount, utils.SatsFromInvoice(invoice))
		require.Zero(t, utils.SatsFromInvoice(""))

		require.True(t, utils.IsValidInvoice(invoice))
		require.False(t, utils.IsValidInvoice(""))
		require.False(t, utils.IsValidInvoice("lnbc"))
	})
}

func testSecrets(t *testing.T) {
	t.Run("secrets", func(t *testing.T) {
		err := utils.IsValidMnemonic("")
		require.Error(t, err)
		require.ErrorContains(t, err, "12 words")

		err = utils.IsValidMnemonic("mnemonic")
		require.Error(t, err)
		require.ErrorContains(t, err, "12 words")

		err = utils.IsValidMnemonic(mnemonic + "xxx")
		require.Error(t, err)
		require.ErrorContains(t, err, "invalid")

		err = utils.IsValidMnemonic(mnemonic)
		require.NoError(t, err)

		err = utils.IsValidMnemonic("  " + mnemonic + "\n")
		require.NoError(t, err)

		seed, err := utils.SeedFromMnemonic(mnemonic)
		require.NoError(t, err)
		require.Len(t, seed, 64)

		_, err = utils.SeedFromMnemonic("mnemonic")
		require.Error(t, err)

		generated, err := utils.NewMnemonic()
		require.NoError(t, err)
		require.NoError(t, utils.IsValidMnemonic(generated))
	})
}

func testIsValidUrls(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "empty", input: "", want: false},
		{name: "no host", input: "acme", want: false},
		{name: "hostname only", input: "acme.com", want: false},
		{name: "host and port", input: "acme.com:10009", want: true},
		{name: "localhost port", input: "localhost:10009", want: true},
		{name: "http", input: "http://acme.com", want: true},
		{name: "https", input: "https://acme.com", want: true},
		{name: "https with port", input: "https://acme.com:10009", want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, utils.IsValidURL(tc.input))
		})
	}
}

func testValidateUrls(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expect      string
		errContains string
	}{
		{name: "with scheme and port", input: "http://lnd:10009", expect: "lnd:10009"},
		{name: "https with port", input: "https://acme.com:10009", expect: "acme.com:10009"},
		{name: "localhost with port", input: "localhost:10009", expect: "localhost:10009"},
		{name: "hostname with port", input: "acme.com:8080", expect: "acme.com:8080"},
		{name: "http without port", input: "http://acme.com", expect: "http://acme.com"},
		{name: "no scheme adds http", input: "acme.com", expect: "http://acme.com"},
		{name: "trims whitespace", input: "  https://trim.me  ", expect: "https://trim.me"},
		{name: "empty", input: "", errContains: "url is empty"},
		{name: "unsupported scheme", input: "ftp://acme.com", errContains: "unsupported scheme"},
		{name: "missing host", input: "http://", errContains: "missing host"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			validated, err := utils.ValidateURL(tc.input)
			if tc.errContains != "" {
				require.Error(t, err)
				require.ErrorContains(t, err, tc.errContains)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, validated)
		})
	}
}

func testRetry(t *testing.T) {
	t.Run("retry", func(t *testing.T) {
		ctx := context.Background()

		attempts := 0
		err := utils.Retry(ctx, time.Millisecond, func(context.Context) (bool, error) {
			attempts++
			return attempts == 3, nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)

		failure := errors.New("fatal")
		err = utils.Retry(ctx, time.Millisecond, func(context.Context) (bool, error) {
			return false, failure
		})
		require.ErrorIs(t, err, failure)

		ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		err = utils.Retry(ctx, 5*time.Millisecond, func(context.Context) (bool, error) {
			return false, nil
		})
		require.ErrorContains(t, err, "timed out")
	})
}
