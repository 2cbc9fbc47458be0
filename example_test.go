package exttask_test

import (
	"context"
	"fmt"
	"time"

	"github.com/petrijr/exttask"
	"github.com/petrijr/exttask/pkg/backoff"
)

// ExampleClientBuilder shows the typical worker setup: build a client,
// open a subscription, and run until shutdown.
func ExampleClientBuilder() {
	client, err := exttask.NewClient("http://localhost:8080/engine-rest").
		WorkerID("invoice-worker").
		MaxTasks(10).
		LockDuration(30 * time.Second).
		Observer(exttask.NewLoggingObserver(nil)).
		Build()
	if err != nil {
		fmt.Println("build failed:", err)
		return
	}

	err = client.Subscribe("invoice-check").
		HandlerFunc(func(ctx context.Context, task *exttask.Task, service exttask.TaskService) error {
			invoiceID, _ := task.Variables.String("invoiceId")

			var result exttask.Variables
			result.SetString("status", "checked:"+invoiceID)
			return service.Complete(ctx, task, result)
		}).
		Open()
	if err != nil {
		fmt.Println("subscribe failed:", err)
		return
	}

	client.Start(context.Background())
	defer client.Stop()
}

// ExampleClientBuilder_backoffStrategy tunes how the loop idles when the
// engine has no work.
func ExampleClientBuilder_backoffStrategy() {
	client, err := exttask.NewClient("http://localhost:8080/engine-rest").
		BackoffStrategy(backoff.NewExponential(time.Second, 2.0, 30*time.Second)).
		Build()
	if err != nil {
		fmt.Println("build failed:", err)
		return
	}
	_ = client
}

// ExampleHandlerFunc_failure reports a technical failure so the engine
// re-delivers the task, and raises a business error a BPMN boundary event
// can catch.
func ExampleHandlerFunc_failure() {
	handler := exttask.HandlerFunc(func(ctx context.Context, task *exttask.Task, service exttask.TaskService) error {
		amount, ok := task.Variables.Float("amount")
		if !ok {
			return service.HandleFailure(ctx, task, exttask.FailureRequest{
				ErrorMessage: "amount variable missing",
				Retries:      2,
				RetryTimeout: 10 * time.Second,
			})
		}

		if amount > 10_000 {
			return service.HandleBPMNError(ctx, task, "APPROVAL_REQUIRED", "amount above limit", nil)
		}

		return service.Complete(ctx, task, nil)
	})
	_ = handler
}
