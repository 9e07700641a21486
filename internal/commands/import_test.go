package commands_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/importlog"
)

const statementBody = `{
	"bank": "Sber",
	"transactions": [
		{"date": "2024-01-15", "amount": -1250.50, "merchant": "Pyaterochka", "category": "supermarket"},
		{"date": "16.01.2024", "amount": 90000, "merchant": "Employer", "category": "salary"},
		{"date": "14.01.2024", "amount": -62, "merchant": "Metro", "category": "transport"},
		{"date": "01/14/2024", "amount": -1, "merchant": "Dropped"}
	]
}`

func dropStatement(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, "import", name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestImport_Inbox(t *testing.T) {
	withClassifier(t, http.StatusOK, statementBody)
	dir := initDir(t)
	dropStatement(t, dir, "sber-jan.pdf")

	out, err := runTally(t, "-C", dir, "import", "--skip", "Transport")
	require.NoError(t, err)
	assert.Contains(t, out, "sber-jan.pdf: 3 transactions from Sber")
	assert.Contains(t, out, "Selected 2 of 3")
	assert.Contains(t, out, "Committed 2 transactions.")
	assert.Contains(t, out, "-1250.50")

	// Statement moved to processed.
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "sber-jan.pdf"))
	require.NoError(t, err)

	out, err = runTally(t, "-C", dir, "ledger", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-01-001")
	assert.Contains(t, out, "2024-01-002")
	assert.Contains(t, out, "Employer")
	assert.NotContains(t, out, "Metro")
	assert.Contains(t, out, "2 transactions")

	entries, err := importlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, importlog.StatusCommitted, entries[0].Status)
	assert.Equal(t, "Sber", entries[0].Bank)
	assert.Equal(t, 3, entries[0].Parsed)
	assert.Equal(t, 2, entries[0].Committed)
}

func TestImport_DryRun(t *testing.T) {
	withClassifier(t, http.StatusOK, statementBody)
	dir := initDir(t)
	path := dropStatement(t, dir, "sber-jan.pdf")

	out, err := runTally(t, "-C", dir, "import", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run, nothing committed.")

	out, err = runTally(t, "-C", dir, "ledger", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "0 transactions")

	_, err = os.Stat(path)
	assert.NoError(t, err, "statement should stay in the inbox")
}

func TestImport_OnlyAndExclude(t *testing.T) {
	withClassifier(t, http.StatusOK, statementBody)
	dir := initDir(t)
	path := dropStatement(t, dir, "a.pdf")

	// List order: Employer, Pyaterochka, Metro. --only Food keeps Pyaterochka,
	// --exclude 1 toggles Employer back on.
	out, err := runTally(t, "-C", dir, "import", path, "--only", "food", "--exclude", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Committed 2 transactions.")

	out, err = runTally(t, "-C", dir, "ledger", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Pyaterochka")
	assert.Contains(t, out, "Employer")
	assert.NotContains(t, out, "Metro")
}

func TestImport_NothingSelected(t *testing.T) {
	withClassifier(t, http.StatusOK, statementBody)
	dir := initDir(t)
	path := dropStatement(t, dir, "a.pdf")

	out, err := runTally(t, "-C", dir, "import", path, "--skip", "Food", "--skip", "Salary", "--skip", "Transport")
	require.NoError(t, err)
	assert.Contains(t, out, "Committed 0 transactions.")

	entries, err := importlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, importlog.StatusEmpty, entries[0].Status)
}

func TestImport_ServerError(t *testing.T) {
	withClassifier(t, http.StatusOK, `{"error": "rate limited", "transactions": []}`)
	dir := initDir(t)
	dropStatement(t, dir, "a.pdf")

	out, err := runTally(t, "-C", dir, "import")
	require.Error(t, err)
	assert.Contains(t, out, "a.pdf: The classification service reported an error: rate limited.")

	// Failed statements stay in the inbox.
	_, statErr := os.Stat(filepath.Join(dir, "import", "a.pdf"))
	assert.NoError(t, statErr)

	entries, err := importlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, importlog.StatusFailed, entries[0].Status)
}

func TestImport_EmptyResult(t *testing.T) {
	withClassifier(t, http.StatusOK, `{"transactions": [{"date": "bad", "amount": 1}]}`)
	dir := initDir(t)
	path := dropStatement(t, dir, "a.pdf")

	out, err := runTally(t, "-C", dir, "import", path)
	require.Error(t, err)
	assert.Contains(t, out, "No transactions were found in the statement.")
}

func TestImport_NotPDF(t *testing.T) {
	calls := withClassifier(t, http.StatusOK, statementBody)
	dir := initDir(t)

	out, err := runTally(t, "-C", dir, "import", filepath.Join(dir, "report.docx"))
	require.Error(t, err)
	assert.Contains(t, out, "Only PDF statements are supported.")
	assert.Equal(t, 0, *calls)
}

func TestImport_EmptyInbox(t *testing.T) {
	withClassifier(t, http.StatusOK, statementBody)
	dir := initDir(t)

	out, err := runTally(t, "-C", dir, "import")
	require.NoError(t, err)
	assert.Contains(t, out, "No statements to import.")
}

func TestImport_BadFlags(t *testing.T) {
	withClassifier(t, http.StatusOK, statementBody)
	dir := initDir(t)
	path := dropStatement(t, dir, "a.pdf")

	_, err := runTally(t, "-C", dir, "import", path, "--only", "Groceries")
	assert.Error(t, err)

	_, err = runTally(t, "-C", dir, "import", path, "--exclude", "9")
	assert.Error(t, err)
}
