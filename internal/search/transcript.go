package search

import (
	"context"
	"fmt"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"

	"github.com/sparklabs/spark/internal/chat"
	"github.com/sparklabs/spark/internal/logging"
)

// transcriptProviderName is the registered name of the built-in provider.
const transcriptProviderName = "transcripts"

// TranscriptProvider indexes chat messages in an embedded vector store.
//
// chromem-go is pure Go with no external service, which fits a desktop
// client: the index lives under the user's storage directory and survives
// restarts.
type TranscriptProvider struct {
	collection *chromem.Collection
	logger     *logging.Logger
}

// NewTranscriptProvider opens (or creates) the transcript index under dir.
func NewTranscriptProvider(dir, collection string, vectorSize int, logger *logging.Logger) (*TranscriptProvider, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	db, err := chromem.NewPersistentDB(filepath.Join(dir, "searchindex"), false)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript index: %w", err)
	}

	col, err := db.GetOrCreateCollection(collection, nil, localEmbedding(vectorSize))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", collection, err)
	}

	return &TranscriptProvider{
		collection: col,
		logger:     logger.Named("search.transcripts"),
	}, nil
}

// Name implements Provider.
func (p *TranscriptProvider) Name() string {
	return transcriptProviderName
}

// Index adds a message to the transcript index.
func (p *TranscriptProvider) Index(ctx context.Context, msg chat.Message) error {
	err := p.collection.AddDocument(ctx, chromem.Document{
		ID:      msg.ID,
		Content: msg.Body,
		Metadata: map[string]string{
			"room": msg.Room,
			"from": msg.From,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to index message %s: %w", msg.ID, err)
	}
	return nil
}

// Search implements Provider.
func (p *TranscriptProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	count := p.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	hits, err := p.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("transcript query failed: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Provider: transcriptProviderName,
			ID:       hit.ID,
			Content:  hit.Content,
			Score:    hit.Similarity,
			Metadata: hit.Metadata,
		})
	}
	return results, nil
}
