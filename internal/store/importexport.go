package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/quizmania/stage/internal/domain"
	apperrors "github.com/quizmania/stage/internal/errors"
)

// Export serializes the whole document for download. The output is a valid
// Import payload.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return data, nil
}

// Import replaces the document with the uploaded payload. Unknown top-level
// fields are ignored and missing ones keep their defaults; a payload that is
// not a JSON object is rejected with the document left unchanged.
func (s *Store) Import(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := domain.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		slog.WarnContext(ctx, "store: import rejected, payload is not a session document", "error", err)
		return apperrors.New(apperrors.CodeInvalidArgument,
			apperrors.WithMessagef("import: payload is not a session document"),
			apperrors.WithCause(err),
		)
	}
	doc.Normalize()
	s.doc = doc

	return s.commit(ctx, domain.SourceImport)
}
