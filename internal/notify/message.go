package notify

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"
)

const base64LineLength = 76

// Attachment is a file sent alongside the HTML body.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a rendered email ready to be encoded as multipart/mixed.
type Message struct {
	ID          string
	From        string
	To          string
	Subject     string
	HTML        string
	Date        time.Time
	Attachments []Attachment
}

// Bytes encodes the message as RFC 5322 text with CRLF line endings.
func (m *Message) Bytes() ([]byte, error) {
	if strings.TrimSpace(m.To) == "" {
		return nil, fmt.Errorf("message has no recipient")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating html part: %w", err)
	}

	qp := quotedprintable.NewWriter(htmlPart)
	if _, err := qp.Write([]byte(m.HTML)); err != nil {
		return nil, fmt.Errorf("writing html part: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("closing html part: %w", err)
	}

	for _, a := range m.Attachments {
		if err := writeAttachment(mw, a); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	var buf bytes.Buffer
	writeHeader(&buf, "From", m.From)
	writeHeader(&buf, "To", m.To)
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("UTF-8", m.Subject))
	writeHeader(&buf, "Date", date.Format(time.RFC1123Z))
	if m.ID != "" {
		writeHeader(&buf, "Message-ID", fmt.Sprintf("<%s@%s>", m.ID, senderDomain(m.From)))
	}
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()}))
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())

	return buf.Bytes(), nil
}

func writeAttachment(mw *multipart.Writer, a Attachment) error {
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": a.Filename})},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return fmt.Errorf("creating attachment %q: %w", a.Filename, err)
	}

	encoded := base64.StdEncoding.EncodeToString(a.Data)
	for len(encoded) > 0 {
		n := min(base64LineLength, len(encoded))
		if _, err := fmt.Fprintf(part, "%s\r\n", encoded[:n]); err != nil {
			return fmt.Errorf("writing attachment %q: %w", a.Filename, err)
		}
		encoded = encoded[n:]
	}

	return nil
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	value = strings.NewReplacer("\r", "", "\n", "").Replace(value)
	fmt.Fprintf(buf, "%s: %s\r\n", name, value)
}

func senderDomain(from string) string {
	if idx := strings.LastIndex(from, "@"); idx != -1 && idx < len(from)-1 {
		return strings.TrimSuffix(from[idx+1:], ">")
	}
	return "localhost"
}
