package validation

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jinmel/avs-examples/pkg/clients/priceClient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BoundValidator approves a price that lies within tolerance of a freshly
// fetched reference price, bounds inclusive. The reference is fetched at
// validation time and may have moved since the task was executed.
type BoundValidator struct {
	priceSource priceClient.IPriceSource
	symbol      string
	tolerance   float64
	logger      *zap.Logger
}

func NewBoundValidator(priceSource priceClient.IPriceSource, symbol string, tolerance float64, logger *zap.Logger) (*BoundValidator, error) {
	if priceSource == nil {
		return nil, fmt.Errorf("price source cannot be nil")
	}
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if tolerance < 0 || tolerance >= 1 {
		return nil, fmt.Errorf("tolerance must be in [0, 1), got %v", tolerance)
	}
	return &BoundValidator{
		priceSource: priceSource,
		symbol:      symbol,
		tolerance:   tolerance,
		logger:      logger,
	}, nil
}

func (bv *BoundValidator) Validate(ctx context.Context, proofOfTask string) (*Verdict, error) {
	taskResult, err := parsePrice("proofOfTask", proofOfTask)
	if err != nil {
		return nil, err
	}

	bv.logger.Sugar().Debugw("Fetching reference price", zap.String("symbol", bv.symbol))
	quote, err := bv.priceSource.GetPrice(ctx, bv.symbol)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch reference price")
	}
	reference, err := parsePrice("reference price", quote.Price)
	if err != nil {
		return nil, err
	}

	return CheckBounds(taskResult, reference, bv.tolerance), nil
}

// Bounds returns the inclusive [lower, upper] range around reference.
func Bounds(reference float64, tolerance float64) (float64, float64) {
	return reference * (1 - tolerance), reference * (1 + tolerance)
}

func CheckBounds(taskResult float64, reference float64, tolerance float64) *Verdict {
	lower, upper := Bounds(reference, tolerance)
	approved := taskResult >= lower && taskResult <= upper
	return &Verdict{
		Validator: ValidatorBounds,
		Approved:  approved,
		Reason: fmt.Sprintf("task result %v against reference %v, accepted range [%v, %v]",
			taskResult, reference, lower, upper),
	}
}

func parsePrice(name string, value string) (float64, error) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &ValidationInputError{Field: name, Value: value, Err: err}
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, &ValidationInputError{Field: name, Value: value, Err: fmt.Errorf("not a finite number")}
	}
	return parsed, nil
}
