// Copyright 2025 The A2A Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package taskexec

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
	"github.com/a2aproject/a2a-orchestrator/internal/taskupdate"
	"github.com/a2aproject/a2a-orchestrator/log"
	"golang.org/x/sync/errgroup"
)

var errNoFinalEvent = errors.New("agent finished without a final event")

type eventProducerFn func(context.Context) error

type eventConsumerFn func(context.Context) (*a2a.Task, error)

// PanicHandlerFn converts a recovered panic value to an error.
type PanicHandlerFn func(r any) error

// Uses an errgroup to start two goroutines. The producer generates events, the consumer processes
// them until it returns a result or an error. A producer error doesn't cancel the consumer, so
// that the events written before the failure are still handled. If the consumer fails after
// the producer failed, the producer error is returned as the root cause.
func runProducerConsumer(ctx context.Context, producer eventProducerFn, consumer eventConsumerFn, panicHandler PanicHandlerFn) (*a2a.Task, error) {
	group, groupCtx := errgroup.WithContext(ctx)

	var producerErr error
	producerDone := make(chan struct{})
	group.Go(func() error {
		defer close(producerDone)
		producerErr = callSafe("event producer", panicHandler, func() error {
			return producer(groupCtx)
		})
		return nil
	})

	var result *a2a.Task
	group.Go(func() error {
		return callSafe("event consumer", panicHandler, func() error {
			task, err := consumer(groupCtx)
			if err != nil {
				return err
			}
			if task == nil {
				return fmt.Errorf("bug: consumer stopped, but result unset")
			}
			result = task
			return nil
		})
	})

	if err := group.Wait(); err != nil {
		<-producerDone
		if producerErr != nil && !errors.Is(producerErr, context.Canceled) {
			return nil, producerErr
		}
		return nil, err
	}
	return result, nil
}

func callSafe(name string, panicHandler PanicHandlerFn, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if panicHandler != nil {
				err = panicHandler(r)
			} else {
				err = fmt.Errorf("%s panic: %v", name, r)
			}
		}
	}()
	return fn()
}

// eventConsumer applies events from the pipe to the task until a final event is processed.
type eventConsumer struct {
	pipe      eventqueue.Reader
	updater   *taskupdate.Manager
	broadcast eventqueue.Writer
	onFinal   func(*a2a.Task)
}

func (c *eventConsumer) consume(ctx context.Context) (*a2a.Task, error) {
	for {
		event, err := c.pipe.Read(ctx)
		if errors.Is(err, eventqueue.ErrQueueClosed) {
			return nil, errNoFinalEvent
		}
		if err != nil {
			return nil, err
		}

		events, err := c.updater.Process(ctx, event)
		if errors.Is(err, taskupdate.ErrTaskTerminal) {
			log.Info(ctx, "event discarded", "reason", err.Error())
			continue
		}
		if err != nil {
			return nil, err
		}
		c.publish(ctx, events)

		if a2a.IsFinal(event) {
			task := c.updater.Task()
			if c.onFinal != nil {
				c.onFinal(task)
			}
			return task, nil
		}
	}
}

func (c *eventConsumer) publish(ctx context.Context, events []a2a.Event) {
	if c.broadcast == nil {
		return
	}
	for _, event := range events {
		if err := c.broadcast.Write(ctx, event); err != nil {
			log.Warn(ctx, "failed to publish event", "error", err)
		}
	}
}

type promise struct {
	done  chan struct{}
	once  sync.Once
	value *a2a.Task
	err   error
}

func newPromise() *promise {
	return &promise{done: make(chan struct{})}
}

func (p *promise) resolve(value *a2a.Task, err error) {
	p.once.Do(func() {
		p.value, p.err = value, err
		close(p.done)
	})
}

func (p *promise) wait(ctx context.Context) (*a2a.Task, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
