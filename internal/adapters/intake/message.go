package intake

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/mikey/spam-dashboard/internal/utils"
)

// maxMultipartDepth bounds nested multipart recursion
const maxMultipartDepth = 5

var (
	errNoText     = errors.New("message has no text content")
	errNotMessage = errors.New("input is not an RFC 5322 message")
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// charsetReader converts any charset known to browsers into UTF-8
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodeHeader decodes RFC 2047 encoded words. Undecodable input is
// returned unchanged.
func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// ScanText parses a raw message and returns the text sent for
// classification: the subject and body separated by a blank line. A body
// that cannot be decoded is dropped and the subject is used alone. Bytes
// that are not valid UTF-8 are removed.
func ScanText(raw []byte, tp *utils.TextProcessor) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errNotMessage, err)
	}

	subject, body, _ := messageText(msg)
	subject = tp.SanitizeUTF8(subject)
	body = tp.SanitizeUTF8(body)

	switch {
	case subject == "":
		return body, nil
	case body == "":
		return subject, nil
	}
	return subject + "\n\n" + body, nil
}

// messageText returns the decoded subject and the text body of a message
func messageText(msg *mail.Message) (subject, body string, err error) {
	subject = strings.TrimSpace(decodeHeader(msg.Header.Get("Subject")))

	body, err = extractText(msg.Body, msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), 0)
	if err != nil {
		return subject, "", err
	}
	return subject, strings.TrimSpace(body), nil
}

// extractText walks a MIME entity and joins its text/plain parts. A
// non-multipart entity without a text media type yields errNoText.
func extractText(r io.Reader, contentType, transferEncoding string, depth int) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		mediaType = "text/plain"
		params = map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" || depth >= maxMultipartDepth {
			return "", errNoText
		}
		return extractMultipart(multipart.NewReader(r, boundary), depth)
	}

	if mediaType != "text/plain" {
		return "", errNoText
	}

	data, err := io.ReadAll(decodeTransfer(r, transferEncoding))
	if err != nil {
		return "", fmt.Errorf("failed to read text part: %w", err)
	}

	if charset := params["charset"]; charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "us-ascii") {
		converted, err := charsetReader(charset, bytes.NewReader(data))
		if err == nil {
			if utf8Data, err := io.ReadAll(converted); err == nil {
				data = utf8Data
			}
		}
	}

	return string(data), nil
}

func extractMultipart(mr *multipart.Reader, depth int) (string, error) {
	var text strings.Builder

	for {
		part, err := mr.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if text.Len() > 0 {
				break
			}
			return "", fmt.Errorf("failed to read multipart body: %w", err)
		}

		partText, err := extractText(part, part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), depth+1)
		if err != nil {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(partText)
	}

	if text.Len() == 0 {
		return "", errNoText
	}
	return text.String(), nil
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	}
	return r
}
