package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/internal/services/asaas"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestWebhookSign(t *testing.T) {
	body := `{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_1"}}`

	out, err := runCmd(t, body, "webhook", "sign", "--secret", "s3cret")
	require.NoError(t, err)
	sig := strings.TrimSpace(out)
	assert.Equal(t, asaas.Sign([]byte(body), "s3cret"), sig)
	assert.True(t, asaas.Verify([]byte(body), sig, "s3cret"))

	file := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))
	out, err = runCmd(t, "", "webhook", "sign", "--secret", "s3cret", "-f", file)
	require.NoError(t, err)
	assert.Equal(t, sig, strings.TrimSpace(out))
}

func TestWebhookSign_RequiresSecret(t *testing.T) {
	_, err := runCmd(t, "{}", "webhook", "sign")
	assert.ErrorContains(t, err, "--secret is required")
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"0", "-1", "abc", ""} {
		_, err := parseID(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseCadenceFlag(t *testing.T) {
	c, err := parseCadenceFlag("")
	require.NoError(t, err)
	assert.Equal(t, domain.Cadence(""), c)

	c, err = parseCadenceFlag("annual")
	require.NoError(t, err)
	assert.Equal(t, domain.CadenceAnnual, c)

	_, err = parseCadenceFlag("weekly")
	assert.Error(t, err)
}

func TestSubscriptionStatus_RejectsBadID(t *testing.T) {
	_, err := runCmd(t, "", "subscription", "status")
	assert.Error(t, err, "missing argument")
}
