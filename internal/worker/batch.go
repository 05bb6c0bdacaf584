package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ballotwatch/ballotwatch/internal/engine"
	"github.com/ballotwatch/ballotwatch/internal/model"
)

// Validator runs one claim through the validation pipeline.
type Validator interface {
	Validate(ctx context.Context, claim model.Claim, opts engine.Options) *engine.Result
}

// ClaimJob validates a single claim.
type ClaimJob struct {
	Claim     model.Claim
	Validator Validator
	Options   engine.Options
}

// Execute runs the claim through the validator.
func (j *ClaimJob) Execute(ctx context.Context) Result {
	return &ClaimResult{
		Claim:  j.Claim,
		Result: j.Validator.Validate(ctx, j.Claim, j.Options),
	}
}

// ClaimResult is the outcome of one claim validation job. Validation
// itself never errors; Err is reserved for pool-level failures.
type ClaimResult struct {
	Claim  model.Claim
	Result *engine.Result
	Err    error
}

func (r *ClaimResult) GetError() error {
	return r.Err
}

// BatchProcessor validates many claims concurrently.
type BatchProcessor struct {
	validator   Validator
	concurrency int
	options     engine.Options
}

// NewBatchProcessor creates a batch processor over a shared validator.
func NewBatchProcessor(validator Validator, concurrency int, opts engine.Options) *BatchProcessor {
	return &BatchProcessor{
		validator:   validator,
		concurrency: concurrency,
		options:     opts,
	}
}

// ProcessClaims validates claims concurrently and returns one result per
// claim. Result order is completion order, not input order.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []model.Claim) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, claim := range claims {
		pool.Submit(&ClaimJob{
			Claim:     claim,
			Validator: b.validator,
			Options:   b.options,
		})
	}

	results := pool.Wait()

	claimResults := make([]*ClaimResult, len(results))
	for i, result := range results {
		claimResults[i] = result.(*ClaimResult)
	}

	return claimResults
}

// ProcessFile reads claims from a JSONL file and validates them
// concurrently.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ClaimResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads one JSON claim per line, skipping blank lines
// and # comments.
func ReadClaimsFromFile(filePath string) ([]model.Claim, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []model.Claim

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var claim model.Claim
		if err := json.Unmarshal([]byte(line), &claim); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if claim.EntityID == "" || claim.Field == "" {
			return nil, fmt.Errorf("line %d: claim missing entity_id or field", lineNo)
		}
		claims = append(claims, claim)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
