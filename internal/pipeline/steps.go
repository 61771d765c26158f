package pipeline

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/gcsuploader"
	"github.com/dvloznov/fintrack-ai/internal/logger"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	DocumentID   string
	GCSURI       string
	Text         string
	Transactions []domain.Transaction
	Records      []store.TransactionRecord
}

// FetchStatementStep reads the statement text from GCS.
type FetchStatementStep struct {
	storage gcsuploader.Storage
}

func (s *FetchStatementStep) Name() string { return "fetch_statement" }

func (s *FetchStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.storage == nil {
		return fmt.Errorf("no object storage configured: %w", ErrInvalidInput)
	}
	if _, _, err := gcsuploader.ParseURI(state.GCSURI); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidInput)
	}
	data, err := s.storage.Fetch(ctx, state.GCSURI)
	if err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("statement %s is not UTF-8 text: %w", state.GCSURI, ErrInvalidInput)
	}
	state.Text = string(data)
	return nil
}

// ExtractTransactionsStep asks the model for the statement's transactions.
type ExtractTransactionsStep struct {
	svc *Service
}

func (s *ExtractTransactionsStep) Name() string { return "extract_transactions" }

func (s *ExtractTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	txs, err := s.svc.ExtractTransactions(ctx, state.Text)
	if err != nil {
		return err
	}
	state.Transactions = txs
	return nil
}

// InsertTransactionsStep persists the extracted transactions.
type InsertTransactionsStep struct {
	repo store.Repository
}

func (s *InsertTransactionsStep) Name() string { return "insert_transactions" }

func (s *InsertTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	recs, err := s.repo.InsertTransactions(ctx, state.DocumentID, state.Transactions)
	if err != nil {
		return err
	}
	state.Records = recs
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.Component(logger.FromContext(ctx), "pipeline").With().Str("document_id", state.DocumentID).Logger()
	for i, step := range p.steps {
		started := time.Now()
		if err := step.Execute(ctx, state); err != nil {
			log.Error().Err(err).Str("step", step.Name()).Msg("Pipeline step failed")
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		log.Debug().Str("step", step.Name()).Dur("took", time.Since(started)).Msg("Pipeline step done")
	}
	return nil
}

// NewTextIngestionPipeline extracts and stores transactions from inline text.
func (s *Service) NewTextIngestionPipeline() *Pipeline {
	return NewPipeline(
		&ExtractTransactionsStep{svc: s},
		&InsertTransactionsStep{repo: s.repo},
	)
}

// NewGCSIngestionPipeline fetches the statement from GCS first.
func (s *Service) NewGCSIngestionPipeline() *Pipeline {
	return NewPipeline(
		&FetchStatementStep{storage: s.storage},
		&ExtractTransactionsStep{svc: s},
		&InsertTransactionsStep{repo: s.repo},
	)
}

// IngestResult lists what one ingestion stored.
type IngestResult struct {
	DocumentID   string                    `json:"document_id"`
	Transactions []store.TransactionRecord `json:"transactions"`
}

// IngestText extracts transactions from text and stores them under documentID.
func (s *Service) IngestText(ctx context.Context, documentID, text string) (*IngestResult, error) {
	state := &PipelineState{DocumentID: documentID, Text: text}
	if err := s.NewTextIngestionPipeline().Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("IngestText: %w", err)
	}
	return &IngestResult{DocumentID: documentID, Transactions: state.Records}, nil
}

// IngestGCS does the same for a statement stored at a gs:// URI.
func (s *Service) IngestGCS(ctx context.Context, documentID, uri string) (*IngestResult, error) {
	state := &PipelineState{DocumentID: documentID, GCSURI: uri}
	if err := s.NewGCSIngestionPipeline().Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("IngestGCS: %w", err)
	}
	return &IngestResult{DocumentID: documentID, Transactions: state.Records}, nil
}
