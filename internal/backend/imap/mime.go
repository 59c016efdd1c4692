package imap

import (
	"bytes"
	"io"

	"github.com/emersion/go-message"
)

// flattenBody walks a raw RFC 5322 message and returns the first
// non-empty text/plain or text/html leaf, preferring later siblings
// within a multipart so the richest alternative wins.
func flattenBody(raw []byte) string {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		// Unparseable structure: fall back to the raw text.
		return string(raw)
	}

	return textLeaf(entity)
}

func textLeaf(entity *message.Entity) string {
	mr := entity.MultipartReader()
	if mr == nil {
		contentType, _, _ := entity.Header.ContentType()
		if contentType != "text/plain" && contentType != "text/html" {
			return ""
		}
		body, err := io.ReadAll(entity.Body)
		if err != nil {
			return ""
		}
		return string(body)
	}

	// Parts must be read in document order, so each subtree's text is
	// computed during the forward pass and the pick happens afterwards,
	// last non-empty sibling first.
	var texts []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		texts = append(texts, textLeaf(part))
	}

	for i := len(texts) - 1; i >= 0; i-- {
		if texts[i] != "" {
			return texts[i]
		}
	}

	return ""
}
