package ingestion

import (
	"testing"

	"google.golang.org/api/gmail/v1"
)

func TestExtractSenderName(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{"Jane Smith <jane@example.com>", "JaneSmith"},
		{`"Jane Smith" <jane@example.com>`, "JaneSmith"},
		{"jane@example.com", "jane"},
		{"nobody", "Unknown"},
	}

	for _, tt := range tests {
		msg := &gmail.Message{Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{{Name: "From", Value: tt.from}},
		}}
		if got := extractSenderName(msg); got != tt.want {
			t.Errorf("extractSenderName(%q) = %q, want %q", tt.from, got, tt.want)
		}
	}

	if got := extractSenderName(&gmail.Message{}); got != "Unknown" {
		t.Errorf("Expected Unknown for message without payload, got %q", got)
	}
}

func TestResumePartsWalksNestedParts(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{}},
			{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{Filename: "cv.pdf", MimeType: "application/pdf", Body: &gmail.MessagePartBody{AttachmentId: "att-1"}},
				},
			},
			{Filename: "batch.zip", MimeType: "application/octet-stream", Body: &gmail.MessagePartBody{AttachmentId: "att-2"}},
			{Filename: "photo.jpg", MimeType: "image/jpeg", Body: &gmail.MessagePartBody{AttachmentId: "att-3"}},
			{Filename: "inline.pdf", MimeType: "application/pdf", Body: &gmail.MessagePartBody{}},
		},
	}

	parts := resumeParts(payload)
	if len(parts) != 2 {
		t.Fatalf("Expected 2 resume parts, got %d", len(parts))
	}
	if parts[0].Filename != "cv.pdf" || parts[1].Filename != "batch.zip" {
		t.Errorf("Unexpected parts: %s, %s", parts[0].Filename, parts[1].Filename)
	}

	if resumeParts(nil) != nil {
		t.Error("Expected nil for nil payload")
	}
}

func TestAttachmentName(t *testing.T) {
	if got := attachmentName("JaneSmith", "resume.pdf"); got != "JaneSmith_resume.pdf" {
		t.Errorf("Unexpected attachment name %q", got)
	}
}
