package notify

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/scholarship"
)

type decodedPart struct {
	contentType string
	filename    string
	body        []byte
}

func decodeMessage(t *testing.T, raw []byte) (*mail.Message, []decodedPart) {
	t.Helper()

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	var parts []decodedPart
	reader := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		body, err := io.ReadAll(part)
		require.NoError(t, err)

		if part.Header.Get("Content-Transfer-Encoding") == "base64" {
			body, err = base64.StdEncoding.DecodeString(strings.NewReplacer("\r", "", "\n", "").Replace(string(body)))
			require.NoError(t, err)
		}

		parts = append(parts, decodedPart{
			contentType: part.Header.Get("Content-Type"),
			filename:    part.FileName(),
			body:        body,
		})
	}

	return msg, parts
}

func reportResult() scholarship.MatchResult {
	return scholarship.MatchResult{
		SummaryProbability: 82,
		Scholarships: []scholarship.Match{{
			Name: "Chevening", Amount: "Full tuition", Deadline: "2026-11-05",
			MatchScore: 88, OneLinerReason: "Leadership record", StrategyTip: "Quantify impact",
		}},
	}
}

func TestComposeReport(t *testing.T) {
	job := NewJob("asha@example.com", "Asha", KindReport, reportResult())
	msg, err := Compose(job, "team@scholarships.example", "", time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	raw, err := msg.Bytes()
	require.NoError(t, err)

	parsed, parts := decodeMessage(t, raw)

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, reportSubject, subject)
	assert.Equal(t, "asha@example.com", parsed.Header.Get("To"))
	assert.Equal(t, "team@scholarships.example", parsed.Header.Get("From"))
	assert.Equal(t, "<"+job.ID+"@scholarships.example>", parsed.Header.Get("Message-ID"))

	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[0].contentType, "text/html"))
	assert.Contains(t, string(parts[0].body), "Hi Asha,")
	assert.Contains(t, string(parts[0].body), "<strong>82%</strong>")

	assert.Equal(t, ReportAttachmentName, parts[1].filename)
	var attached scholarship.MatchResult
	require.NoError(t, json.Unmarshal(parts[1].body, &attached))
	assert.Equal(t, reportResult(), attached)
	assert.Contains(t, string(parts[1].body), "\n  \"summary_probability\": 82")
}

func TestComposeConsultation(t *testing.T) {
	job := NewJob("asha@example.com", "Asha", KindConsultation, *scholarship.Fallback())
	msg, err := Compose(job, "team@scholarships.example", "https://scholarships.example/book", time.Now())
	require.NoError(t, err)

	assert.Equal(t, consultationSubject, msg.Subject)
	assert.Empty(t, msg.Attachments)
	assert.Contains(t, msg.HTML, `href="https://scholarships.example/book"`)

	raw, err := msg.Bytes()
	require.NoError(t, err)

	_, parts := decodeMessage(t, raw)
	require.Len(t, parts, 1)
	assert.Contains(t, string(parts[0].body), "Book a Free Consultation")
}

func TestComposeEscapesName(t *testing.T) {
	job := NewJob("a@example.com", "<script>alert(1)</script>", KindReport, reportResult())
	msg, err := Compose(job, "team@example.com", "", time.Now())
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestComposeUnknownKind(t *testing.T) {
	_, err := Compose(Job{Email: "a@example.com", Kind: "sms"}, "team@example.com", "", time.Now())
	assert.Error(t, err)
}

func TestMessageBytesRequiresRecipient(t *testing.T) {
	_, err := (&Message{From: "team@example.com", HTML: "<p>hi</p>"}).Bytes()
	assert.Error(t, err)
}

func TestMessageHeadersStripNewlines(t *testing.T) {
	msg := &Message{From: "team@example.com", To: "a@example.com", Subject: "hi\r\nBcc: evil@example.com", HTML: "x"}
	raw, err := msg.Bytes()
	require.NoError(t, err)

	parsed, _ := decodeMessage(t, raw)
	assert.Empty(t, parsed.Header.Get("Bcc"))
}

func TestKindFor(t *testing.T) {
	result := reportResult()
	assert.Equal(t, KindReport, KindFor(&result))
	assert.Equal(t, KindConsultation, KindFor(scholarship.Fallback()))
	assert.Equal(t, KindConsultation, KindFor(&scholarship.MatchResult{}))
}
