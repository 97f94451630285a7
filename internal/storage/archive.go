// archive.go - MongoDB archive of extraction runs.
//
// The pipeline itself stays stateless; the archive lives in the HTTP
// layer, which is a caller, and records what each run produced so an
// operator can audit low-confidence extractions later. It is optional:
// without a configured URI the service runs without it.

package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

const runsCollection = "extraction_runs"

// RunRecord is one archived extraction run.
type RunRecord struct {
	RequestID  string    `bson:"request_id"`
	Filename   string    `bson:"filename"`
	Source     string    `bson:"source"`
	Confidence int       `bson:"confidence"`
	Warnings   []string  `bson:"warnings"`
	DurationMS int64     `bson:"duration_ms"`
	CreatedAt  time.Time `bson:"created_at"`
}

// Archive wraps the runs collection.
type Archive struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// NewArchive connects and pings. Callers should treat a nil *Archive as
// "archiving disabled"; its methods are nil-safe.
func NewArchive(ctx context.Context, uri, dbName string) (*Archive, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	return &Archive{
		client: client,
		runs:   client.Database(dbName).Collection(runsCollection),
	}, nil
}

// Record stores one run. Best effort by contract: the caller logs the
// error and moves on, it never affects the extraction response.
func (a *Archive) Record(ctx context.Context, requestID, filename string, result invoice.ExtractionResult, elapsed time.Duration) error {
	if a == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := a.runs.InsertOne(ctx, RunRecord{
		RequestID:  requestID,
		Filename:   filename,
		Source:     string(result.Source),
		Confidence: result.Confidence,
		Warnings:   result.Warnings,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (a *Archive) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}
