package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/rpc"
	"restaurant-pos/internal/services/checkout"
)

// WorkflowSubmitter hands a checkout to the Temporal cluster and waits for
// the outcome. The workflow id is derived from the checkout key, so a
// resubmitted session joins the run already in flight.
type WorkflowSubmitter struct {
	client     client.Client
	taskQueue  string
	compensate bool
	logger     *logger.Logger
}

func NewWorkflowSubmitter(c client.Client, taskQueue string, compensate bool, log *logger.Logger) *WorkflowSubmitter {
	return &WorkflowSubmitter{client: c, taskQueue: taskQueue, compensate: compensate, logger: log}
}

func (s *WorkflowSubmitter) Submit(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResult, error) {
	opts := client.StartWorkflowOptions{
		ID:        "checkout-" + req.IdempotencyKey,
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, CheckoutWorkflow, CheckoutInput{Request: req, Compensate: s.compensate})
	if err != nil {
		return nil, &checkout.StepError{Step: checkout.StepCheckout, Err: fmt.Errorf("failed to start checkout workflow: %w", err)}
	}
	s.logger.Info("checkout_workflow_started", "Checkout workflow started", "", map[string]interface{}{
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
	})

	var result models.CheckoutResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, StepErrorFrom(err)
	}
	return &result, nil
}

// StepErrorFrom turns a failed workflow back into a checkout.StepError
// whose cause matches the errors the backend returned
func StepErrorFrom(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || appErr.Type() != errTypeStep {
		return &checkout.StepError{Step: checkout.StepCheckout, Err: err}
	}
	var failure StepFailure
	if appErr.HasDetails() {
		_ = appErr.Details(&failure)
	}
	if failure.Step == "" {
		failure.Step = checkout.StepCheckout
	}
	return &checkout.StepError{Step: failure.Step, Err: domainError(appErr.Unwrap()), Compensated: failure.Compensated}
}

// domainError finds the first classified activity error in the chain and
// restores the matching models error
func domainError(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		appErr, ok := e.(*temporal.ApplicationError)
		if !ok {
			continue
		}
		switch appErr.Type() {
		case errTypeValidation:
			var field string
			if appErr.HasDetails() {
				_ = appErr.Details(&field)
			}
			return models.ValidationError{Field: field, Message: appErr.Message()}
		case errTypeNotFound:
			return fmt.Errorf("%s: %w", appErr.Message(), models.ErrNotFound)
		case errTypeConflict:
			return fmt.Errorf("%s: %w", appErr.Message(), models.ErrConflict)
		case errTypePIN:
			return fmt.Errorf("%s: %w", appErr.Message(), models.ErrInvalidPIN)
		}
	}
	return err
}

// NewWorker registers the checkout workflow and its activities on a task queue
func NewWorker(c client.Client, taskQueue string, api rpc.API) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     100,
		MaxConcurrentWorkflowTaskExecutionSize: 50,
	})
	w.RegisterWorkflow(CheckoutWorkflow)
	w.RegisterActivity(&Activities{API: api})
	return w
}
