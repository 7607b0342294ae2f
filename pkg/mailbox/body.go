package mailbox

import (
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/placementwire/ingest/internal/htmltext"
)

// ExtractTextBody pulls a plain-text body out of a raw RFC822 message.
// text/plain parts win over text/html; HTML is flattened. Returns "" when
// nothing usable is found.
func ExtractTextBody(raw []byte) string {
	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return ""
	}

	plain, html := walkPart(msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if plain != "" {
		return strings.TrimSpace(plain)
	}
	if html != "" {
		flat, err := htmltext.Flatten(html)
		if err != nil {
			return ""
		}
		return flat
	}
	return ""
}

// walkPart returns the first text/plain and text/html bodies found in the
// part, descending into multipart containers.
func walkPart(contentType, encoding string, body io.Reader) (plain, html string) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := params["boundary"]
		if boundary == "" {
			return "", ""
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if err != nil {
				return plain, html
			}
			p, h := walkPart(part.Header.Get("Content-Type"),
				part.Header.Get("Content-Transfer-Encoding"), part)
			if plain == "" {
				plain = p
			}
			if html == "" {
				html = h
			}
			if plain != "" && html != "" {
				return plain, html
			}
		}

	case mediaType == "text/plain":
		return readBody(body, encoding), ""

	case mediaType == "text/html":
		return "", readBody(body, encoding)
	}
	return "", ""
}

func readBody(r io.Reader, encoding string) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	b, err := io.ReadAll(r)
	if err != nil && len(b) == 0 {
		return ""
	}
	return string(b)
}
