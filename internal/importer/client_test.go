package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

// fakeAccessor serves fixed bytes and records how many handles were released.
type fakeAccessor struct {
	data     []byte
	err      error
	acquired atomic.Int32
	released atomic.Int32
}

type trackedReader struct {
	io.Reader
	a *fakeAccessor
}

func (r *trackedReader) Close() error {
	r.a.released.Add(1)
	return nil
}

func (a *fakeAccessor) Acquire(string) (io.ReadCloser, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.acquired.Add(1)
	return &trackedReader{Reader: bytes.NewReader(a.data), a: a}, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeAccessor, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	acc := &fakeAccessor{data: []byte("%PDF-1.7 fake")}
	client := NewClient(server.URL, zerolog.Nop(), WithAccessor(acc))
	return client, acc, &calls
}

func respondJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func TestParseFile_UploadShape(t *testing.T) {
	var gotPart struct {
		name, filename, contentType string
		data                        []byte
	}
	var gotPath, gotMediaType string

	client, acc, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMediaType = r.Header.Get("Content-Type")

		mr, err := r.MultipartReader()
		if !assert.NoError(t, err) {
			return
		}
		part, err := mr.NextPart()
		if !assert.NoError(t, err) {
			return
		}
		gotPart.name = part.FormName()
		gotPart.filename = part.FileName()
		gotPart.contentType = part.Header.Get("Content-Type")
		gotPart.data, _ = io.ReadAll(part)

		respondJSON(`{"bank":"Tinkoff","transactions":[{"date":"2024-01-15","amount":-10}]}`)(w, r)
	})

	got, err := client.ParseFile(context.Background(), "/tmp/statements/January.PDF")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "/classify", gotPath)
	assert.True(t, strings.HasPrefix(gotMediaType, "multipart/form-data; boundary="), gotMediaType)
	assert.Equal(t, "file", gotPart.name)
	assert.Equal(t, "January.PDF", gotPart.filename)
	assert.Equal(t, "application/pdf", gotPart.contentType)
	assert.Equal(t, acc.data, gotPart.data)

	assert.Equal(t, int32(1), acc.acquired.Load())
	assert.Equal(t, int32(1), acc.released.Load())
}

func TestParseFile_CleanBatch(t *testing.T) {
	client, _, _ := newTestClient(t, respondJSON(`{
		"bank": "Sber",
		"transactions": [
			{"date": "2024-01-15", "amount": -1250.5, "merchant": "Pyaterochka", "category": "supermarket"},
			{"date": "15.01.2024", "amount": 5000,    "merchant": null, "details": "Transfer from Ivan", "category": "transfer", "bank": "Alfa"},
			{"date": "01/14/2024", "amount": 300,     "merchant": "Dropped"},
			{"date": "16.01.2024", "amount": 700,     "merchant": "Employer LLC", "category": "salary"}
		],
		"error": null
	}`))

	got, err := client.ParseFile(context.Background(), "statement.pdf")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Most recent first; equal dates keep server order.
	assert.Equal(t, "Employer LLC", got[0].Title)
	assert.Equal(t, "Pyaterochka", got[1].Title)
	assert.Equal(t, "Transfer from Ivan", got[2].Title)

	assert.True(t, got[1].IsExpense)
	assert.True(t, got[1].Amount.Equal(dec("1250.5")))
	assert.Equal(t, model.CategoryFood, got[1].Category)
	assert.Equal(t, "Sber", got[1].BankName)
	assert.Equal(t, "Pyaterochka", got[1].Details)

	assert.False(t, got[2].IsExpense)
	assert.Equal(t, model.CategoryTransfer, got[2].Category)
	assert.Equal(t, "Alfa", got[2].BankName)
	assert.Equal(t, "Transfer from Ivan", got[2].Details)

	ids := map[string]bool{}
	for _, c := range got {
		assert.True(t, c.IsSelected)
		assert.False(t, c.Amount.IsNegative())
		assert.NotEmpty(t, c.ID)
		ids[c.ID] = true
	}
	assert.Len(t, ids, 3)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestParseFile_UnsupportedFormat(t *testing.T) {
	client, acc, calls := newTestClient(t, respondJSON(`{}`))

	for _, path := range []string{"report.docx", "statement.pdf.txt", "noext", ""} {
		_, err := client.ParseFile(context.Background(), path)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, path)
	}
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, int32(0), acc.acquired.Load())
}

func TestParseFile_AccessDenied(t *testing.T) {
	client, acc, calls := newTestClient(t, respondJSON(`{}`))
	acc.err = errors.New("permission denied")

	_, err := client.ParseFile(context.Background(), "locked.pdf")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, KindAccessDenied, KindOf(err))
	assert.Equal(t, int32(0), calls.Load())
}

func TestParseFile_LocalAccessorMissingFile(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", zerolog.Nop())
	_, err := client.ParseFile(context.Background(), t.TempDir()+"/missing.pdf")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestParseFile_NetworkUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	acc := &fakeAccessor{data: []byte("%PDF")}
	client := NewClient(url, zerolog.Nop(), WithAccessor(acc))

	_, err := client.ParseFile(context.Background(), "a.pdf")
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.False(t, IsCanceled(err))
	assert.Equal(t, int32(1), acc.released.Load())
}

func TestParseFile_Timeout(t *testing.T) {
	client, acc, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	WithTimeout(50 * time.Millisecond)(client)

	_, err := client.ParseFile(context.Background(), "slow.pdf")
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.Equal(t, int32(1), acc.released.Load())
}

func TestParseFile_Canceled(t *testing.T) {
	started := make(chan struct{})
	client, acc, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// The server only notices a client disconnect once the body is consumed.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	got, err := client.ParseFile(ctx, "a.pdf")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsCanceled(err))
	assert.Equal(t, 0, int(KindOf(err)))
	assert.Equal(t, int32(1), acc.released.Load())
}

func TestParseFile_ServerErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantDetail string
	}{
		{"error field on 200", 200, `{"error": "rate limited", "transactions": []}`, 0, "rate limited"},
		{"error field with records", 200, `{"error": "quota", "transactions": [{"date":"2024-01-15","amount":1}]}`, 0, "quota"},
		{"non-200 with error body", 422, `{"error": "not a bank statement"}`, 422, "not a bank statement"},
		{"non-200 plain body", 503, `upstream down`, 503, ""},
		{"non-200 valid body", 500, `{"transactions": [{"date":"2024-01-15","amount":1}]}`, 500, ""},
		{"malformed body", 200, `<html>`, 0, "malformed response"},
		{"transactions not a list", 200, `{"transactions": 3}`, 0, "malformed response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.ParseFile(context.Background(), "s.pdf")
			require.ErrorIs(t, err, ErrServerError)
			assert.NotErrorIs(t, err, ErrEmptyResult)

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.wantStatus, e.StatusCode)
			assert.Equal(t, tt.wantDetail, e.Detail)
		})
	}
}

func TestParseFile_AllDropped(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no records", `{"transactions": []}`},
		{"missing transactions", `{"bank": "Sber"}`},
		{"all unparseable", `{"transactions": [
			{"date": "2024/01/15", "amount": 1},
			{"date": "2024-01-15", "amount": "12.00"},
			{"date": "2024-01-15"},
			{"amount": 5},
			{"date": null, "amount": 5},
			{"date": 20240115, "amount": 5},
			"garbage"
		]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestClient(t, respondJSON(tt.body))
			got, err := client.ParseFile(context.Background(), "s.pdf")
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrEmptyResult)
		})
	}
}

func TestParseFile_DropsUnparseableDates(t *testing.T) {
	client, _, _ := newTestClient(t, respondJSON(`{"transactions": [
		{"date": "2024-01-15", "amount": 1},
		{"date": "Jan 15",     "amount": 2},
		{"date": "2024-13-01", "amount": 3},
		{"date": "14.01.24",   "amount": 4},
		{"date": "13/01/2024", "amount": -5},
		{"date": "0001-01-01", "amount": 6},
		{"date": "01.01.0001", "amount": 7}
	]}`))

	got, err := client.ParseFile(context.Background(), "s.pdf")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got[0].Date)
	assert.Equal(t, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC), got[1].Date)
	assert.Equal(t, time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), got[2].Date)
	assert.True(t, got[2].IsExpense)
}

func TestParseFile_TitleDerivation(t *testing.T) {
	long := strings.Repeat("x", 200)
	client, _, _ := newTestClient(t, respondJSON(`{"transactions": [
		{"date": "2024-01-05", "amount": 1, "merchant": "`+long+`"},
		{"date": "2024-01-04", "amount": 1, "merchant": "   ", "details": "  Card payment  "},
		{"date": "2024-01-03", "amount": 1},
		{"date": "2024-01-02", "amount": 1, "merchant": "  Ozon  ", "details": "ORDER 42"},
		{"date": "2024-01-01", "amount": 0, "merchant": "`+strings.Repeat("é", 100)+`"}
	]}`))

	got, err := client.ParseFile(context.Background(), "s.pdf")
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Len(t, got[0].Title, 80)
	assert.Equal(t, "Card payment", got[1].Title)
	assert.Equal(t, "Transaction", got[2].Title)
	assert.Equal(t, "", got[2].Details)
	assert.Equal(t, "Ozon", got[3].Title)
	assert.Equal(t, "ORDER 42", got[3].Details)
	assert.Equal(t, 80, len([]rune(got[4].Title)))
	assert.False(t, got[4].IsExpense)
}

func TestParseFile_UnknownCategoryIsOther(t *testing.T) {
	client, _, _ := newTestClient(t, respondJSON(`{"transactions": [
		{"date": "2024-01-05", "amount": -1, "category": "spaceships"},
		{"date": "2024-01-04", "amount": -1, "category": null},
		{"date": "2024-01-03", "amount": -1, "category": "Рестораны"}
	]}`))

	got, err := client.ParseFile(context.Background(), "s.pdf")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, model.CategoryOther, got[0].Category)
	assert.Equal(t, model.CategoryOther, got[1].Category)
	assert.Equal(t, model.CategoryFood, got[2].Category)
}

func TestParseFile_SignInvariant(t *testing.T) {
	client, _, _ := newTestClient(t, respondJSON(`{"transactions": [
		{"date": "2024-01-05", "amount": -0.01},
		{"date": "2024-01-04", "amount": 0},
		{"date": "2024-01-03", "amount": 1e3},
		{"date": "2024-01-02", "amount": -12345678.90}
	]}`))

	got, err := client.ParseFile(context.Background(), "s.pdf")
	require.NoError(t, err)
	require.Len(t, got, 4)

	want := []struct {
		amount  string
		expense bool
	}{
		{"0.01", true},
		{"0", false},
		{"1000", false},
		{"12345678.90", true},
	}
	for i, w := range want {
		assert.True(t, got[i].Amount.Equal(dec(w.amount)), "amount %d: %s", i, got[i].Amount)
		assert.Equal(t, w.expense, got[i].IsExpense, "expense %d", i)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrUnsupportedFormat, "Only PDF statements are supported."},
		{ErrAccessDenied, "The statement file could not be opened."},
		{ErrNetworkUnavailable, "The classification service could not be reached. Check your connection and try again."},
		{&Error{Kind: KindServerError, Detail: "rate limited"}, "The classification service reported an error: rate limited."},
		{&Error{Kind: KindServerError, StatusCode: 502}, "The classification service returned HTTP 502."},
		{ErrServerError, "The classification service returned an error."},
		{ErrEmptyResult, "No transactions were found in the statement."},
		{errors.New("other"), "Something went wrong while importing the statement."},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Message(tt.err))
	}
}

func TestErrorIs_MatchesKindOnly(t *testing.T) {
	err := &Error{Kind: KindServerError, StatusCode: 500, Detail: "boom"}
	assert.ErrorIs(t, err, ErrServerError)
	assert.NotErrorIs(t, err, ErrEmptyResult)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "boom")
}
