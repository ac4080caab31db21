/*
Package workflow orchestrates the multi step operations that span the
ledger, the encryption service and the blob store.

Creating a document and signing it are sagas. Every saga runs a fixed
sequence of stages and stores its Progress after each completed stage, so
an interrupted saga can be resumed without repeating work already
committed, in particular without uploading its content again. Transient
failures are retried with exponential backoff inside the failing stage.
Any other failure stops the saga with a StageError.
*/
package workflow

import (
	"fmt"
	"time"
)

// Saga identifies a kind of saga.
type Saga string

const (
	SagaCreate Saga = "create"
	SagaSign   Saga = "sign"
)

// Stage of a saga.
type Stage string

const (
	StageCreating   Stage = "creating"
	StageEncrypting Stage = "encrypting"
	StageUploading  Stage = "uploading"
	StageRecording  Stage = "recording"
	StageResolving  Stage = "resolving"
	StageAppending  Stage = "appending"
	StageSigning    Stage = "signing"
	StageDone       Stage = "done"
)

// stages returns the stage order of a saga.
func (s Saga) stages() []Stage {
	switch s {
	case SagaCreate:
		return []Stage{StageCreating, StageEncrypting, StageUploading, StageRecording, StageDone}
	case SagaSign:
		return []Stage{StageEncrypting, StageUploading, StageResolving, StageAppending, StageSigning, StageDone}
	default:
		return nil
	}
}

// position returns the index of the stage in the saga order, or -1.
func (s Saga) position(stage Stage) int {
	for i, st := range s.stages() {
		if st == stage {
			return i
		}
	}
	return -1
}

// StageError is returned when a saga stage failed. Err keeps its
// registered error kind, so errors.Is works on a StageError.
type StageError struct {
	Saga  Saga
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s saga failed at %s: %s", e.Saga, e.Stage, e.Err)
}

func (e *StageError) Cause() error  { return e.Err }
func (e *StageError) Unwrap() error { return e.Err }

// Config of the orchestrator.
type Config struct {
	// Threshold is the number of key servers required to decrypt.
	Threshold int
	// RetryTimeout bounds the time spent retrying a single stage.
	RetryTimeout time.Duration
	// RetryInterval is the first backoff interval.
	RetryInterval time.Duration
	// CapabilityPageSize is the page size of the capability scan.
	CapabilityPageSize int
	// SessionTTL is the validity of decryption session keys.
	SessionTTL time.Duration
}

// DefaultConfig returns the configuration used for zero fields.
func DefaultConfig() Config {
	return Config{
		Threshold:          2,
		RetryTimeout:       30 * time.Second,
		RetryInterval:      100 * time.Millisecond,
		CapabilityPageSize: 50,
		SessionTTL:         5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.RetryTimeout <= 0 {
		c.RetryTimeout = d.RetryTimeout
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = d.RetryInterval
	}
	if c.CapabilityPageSize <= 0 {
		c.CapabilityPageSize = d.CapabilityPageSize
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	return c
}
