package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/omegacore/omega/pkg/models"
)

// stageAttachments implements step 4: attachments already carry their
// bytes (channel adapters download before dispatch), so staging here
// just materializes them under a per-call inbox directory and returns
// a cleanup func that removes it — an RAII-style binding so the inbox
// never outlives the pipeline call that created it.
func (p *Pipeline) stageAttachments(attachments []models.Attachment) func() {
	if len(attachments) == 0 || p.AttachmentInbox == "" {
		return func() {}
	}

	callDir := filepath.Join(p.AttachmentInbox, callID())
	if err := os.MkdirAll(callDir, 0o755); err != nil {
		p.Logger.Warn("failed to create attachment inbox", "error", err)
		return func() {}
	}

	for _, a := range attachments {
		if len(a.Data) == 0 {
			continue
		}
		path := filepath.Join(callDir, filepath.Base(a.Filename))
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			p.Logger.Warn("failed to stage attachment", "filename", a.Filename, "error", err)
		}
	}

	return func() {
		if err := os.RemoveAll(callDir); err != nil {
			p.Logger.Warn("failed to clean attachment inbox", "dir", callDir, "error", err)
		}
	}
}

func callID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
