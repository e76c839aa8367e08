package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBatch = `[
	["claim_type_code", 1, "AUTO"],
	["claim_identifier", 1, 1],
	["claim_transactions", 1, "[10]"],
	["transaction_amount", 10, "10.5"],
	["transaction_identifier", 10, "TX-10"],
	["transaction_claim", 10, 1]
]`

func loadSample(t *testing.T, root string) {
	t.Helper()
	_, _, err := runCLI(t, sampleBatch, "--root", root, "load")
	require.NoError(t, err)
}

func TestLoadThenGet(t *testing.T) {
	root := t.TempDir()

	out, _, err := runCLI(t, sampleBatch, "--root", root, "load")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Loaded 6/6 item(s) into 6 field(s)")

	out, _, err = runCLI(t, "", "--root", root, "get", "claim_type_code", "1")
	require.NoError(t, err)
	assert.Equal(t, "AUTO\n", out)

	out, _, err = runCLI(t, "", "--root", root, "get", "transaction_amount", "10")
	require.NoError(t, err)
	assert.Equal(t, "10.50\n", out)
}

func TestLoad_FromFileJSON(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items": [["claim_type_code", 2, "HOME"]]}`), 0o644))

	out, _, err := runCLI(t, "", "--root", root, "--format", "json", "load", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["items"])
	assert.Equal(t, float64(1), data["applied"])
	assert.Equal(t, []any{"claim_type_code"}, data["fields"])
	assert.NotEmpty(t, data["batch_id"])
}

func TestLoad_FailedItemsExitFailure(t *testing.T) {
	root := t.TempDir()

	out, _, err := runCLI(t, `[["claim_identifier", 1, "one"], ["claim_type_code", 1, "AUTO"]]`, "--root", root, "load")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Loaded 1/2 item(s)")
	assert.Contains(t, out, "item 0 claim_identifier[1]")

	// The good item still landed.
	out, _, err = runCLI(t, "", "--root", root, "get", "claim_type_code", "1")
	require.NoError(t, err)
	assert.Equal(t, "AUTO\n", out)
}

func TestLoad_FailedItemsJSON(t *testing.T) {
	out, _, err := runCLI(t, `[["claim_identifier", 1, "one"]]`, "--root", t.TempDir(), "--format", "json", "load")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBatchFailed, resp.Error.Code)
}

func TestLoad_BadInput(t *testing.T) {
	out, _, err := runCLI(t, "not json", "--root", t.TempDir(), "load")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestGet_NotFound(t *testing.T) {
	out, _, err := runCLI(t, "", "--root", t.TempDir(), "get", "claim_type_code", "404")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestGet_BadArguments(t *testing.T) {
	_, _, err := runCLI(t, "", "--root", t.TempDir(), "get", "claim_type_code", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, _, err := runCLI(t, "", "--root", t.TempDir(), "get", "../etc", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestGet_JSON(t *testing.T) {
	root := t.TempDir()
	loadSample(t, root)

	out, _, err := runCLI(t, "", "--root", root, "--format", "json", "get", "claim_transactions", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"field":"claim_transactions","uid":1,"kind":"identifier_list","value":[10]}}`, out)
}

func TestPutAndDelete(t *testing.T) {
	root := t.TempDir()

	out, _, err := runCLI(t, "", "--root", root, "put", "claim_parties", "1", "[3,4]")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ claim_parties[1] = [3,4]")

	out, _, err = runCLI(t, "", "--root", root, "put", "transaction_amount", "1", "2.005")
	require.NoError(t, err)
	assert.Contains(t, out, "transaction_amount[1] = 2.005")

	out, _, err = runCLI(t, "", "--root", root, "get", "transaction_amount", "1")
	require.NoError(t, err)
	assert.Equal(t, "2.00\n", out, "quantized half-even on read")

	_, _, err = runCLI(t, "", "--root", root, "delete", "claim_parties", "1")
	require.NoError(t, err)
	_, _, err = runCLI(t, "", "--root", root, "delete", "claim_parties", "1")
	require.NoError(t, err, "deleting an absent uid succeeds")

	_, _, err = runCLI(t, "", "--root", root, "get", "claim_parties", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPut_MalformedValue(t *testing.T) {
	out, _, err := runCLI(t, "", "--root", t.TempDir(), "put", "claim_identifier", "1", "one")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestPut_KindForUncataloguedField(t *testing.T) {
	root := t.TempDir()

	_, _, err := runCLI(t, "", "--root", root, "put", "--kind", "integer", "ad_hoc_count", "1", "42")
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "--root", root, "--format", "json", "get", "ad_hoc_count", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"field":"ad_hoc_count","uid":1,"kind":"integer","value":42}}`, out)

	_, _, err = runCLI(t, "", "--root", root, "put", "--kind", "float", "ad_hoc_count", "1", "42")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQuery(t *testing.T) {
	root := t.TempDir()
	loadSample(t, root)

	out, _, err := runCLI(t, "", "--root", root, "query", "--field", "claim_type_code")
	require.NoError(t, err)
	assert.JSONEq(t, `{"uid":1,"value":"AUTO"}`, strings.TrimSpace(out))

	out, _, err = runCLI(t, "", "--root", root, "--format", "json", "query",
		"-f", "transaction_amount", "-s", "select value from items where uid = ?", "-p", "10")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":[{"value":"10.5"}]}`, out)
}

func TestQuery_DefaultFieldIsEmpty(t *testing.T) {
	out, _, err := runCLI(t, "", "--root", t.TempDir(), "query")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestQuery_RejectsWrites(t *testing.T) {
	root := t.TempDir()
	loadSample(t, root)

	out, _, err := runCLI(t, "", "--root", root, "query", "-f", "claim_type_code", "-s", "delete from items")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]")
}

func TestFields(t *testing.T) {
	root := t.TempDir()

	out, _, err := runCLI(t, "", "--root", root, "fields")
	require.NoError(t, err)
	assert.Equal(t, "(no fields)\n", out)

	loadSample(t, root)

	out, _, err = runCLI(t, "", "--root", root, "--format", "json", "fields")
	require.NoError(t, err)

	var resp struct {
		Data []FieldInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 6)
	assert.Equal(t, FieldInfo{Field: "claim_identifier", Rows: 1, Kind: "int", Variant: "Claim"}, resp.Data[0])
}

func TestReset(t *testing.T) {
	root := t.TempDir()
	loadSample(t, root)

	out, _, err := runCLI(t, "", "--root", root, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Removed 6 field(s)")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	out, _, err = runCLI(t, "", "--root", root, "reset")
	require.NoError(t, err, "reset of an empty store succeeds")
	assert.Contains(t, out, "✓ Removed 0 field(s)")
}

func TestResolve_File(t *testing.T) {
	root := t.TempDir()
	loadSample(t, root)

	query := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(query, []byte(`
node: Claim
id: 1
select:
  - claim_type_code
  - transactions:
      - amount
      - claim:
          - id
`), 0o644))

	out, _, err := runCLI(t, "", "--root", root, "resolve", query)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"claim_type_code":"AUTO","transactions":[{"amount":"10.50","claim":{"id":1}}]}}`, out)
}

func TestResolve_Flags(t *testing.T) {
	root := t.TempDir()
	loadSample(t, root)

	out, _, err := runCLI(t, "", "--root", root, "resolve", "--node", "transaction", "--id", "10", "--select", "__typename,financial_transaction_identifier,claim")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"__typename":"Transaction","financial_transaction_identifier":"TX-10","claim":1}}`, out)
}

func TestResolve_PartialExitFailure(t *testing.T) {
	root := t.TempDir()
	loadSample(t, root)

	out, _, err := runCLI(t, "node: Claim\nid: 1\nselect: [claim_type_code, timestamp]\n", "--root", root, "resolve", "-")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.JSONEq(t, `{"data":{"claim_type_code":"AUTO","timestamp":null},"errors":[{"message":"fieldkv: not found","path":["timestamp"]}]}`, out)
}

func TestResolve_BadArguments(t *testing.T) {
	_, _, err := runCLI(t, "", "--root", t.TempDir(), "resolve")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = runCLI(t, "", "--root", t.TempDir(), "resolve", "--node", "Vehicle", "--select", "id")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSchema(t *testing.T) {
	out, _, err := runCLI(t, "", "--root", t.TempDir(), "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction")
	assert.Contains(t, out, "transaction_amount")
	assert.Contains(t, out, "refs -> Party")
	assert.Contains(t, out, "(optional)")

	out, _, err = runCLI(t, "", "--root", t.TempDir(), "--format", "json", "schema")
	require.NoError(t, err)
	var resp struct {
		Data []VariantInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 3)
}
