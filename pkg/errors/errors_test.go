package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("opening text: %w", ErrNotFound), http.StatusNotFound},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"format", Formatf("line %d: second word not found", 3), http.StatusUnprocessableEntity},
		{"io", IO("reading document", fs.ErrPermission), http.StatusInternalServerError},
		{"dispatch", &StageError{Kind: ErrDispatch, Stage: StageDispatch, Worker: 2, Err: errors.New("closed")}, http.StatusInternalServerError},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"app error wins", New(ErrNotFound, http.StatusTeapot, "custom"), http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestStageErrorUnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("worker exited")
	err := fmt.Errorf("processing alice.txt: %w", &StageError{
		Kind:   ErrCollect,
		Stage:  StageCollect,
		Worker: 3,
		Err:    cause,
	})

	assert.ErrorIs(t, err, ErrCollect)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDispatch)
	assert.Contains(t, err.Error(), "collect stage, worker 3")

	var stageErr *StageError
	if assert.ErrorAs(t, err, &stageErr) {
		assert.Equal(t, StageCollect, stageErr.Stage)
	}
}

func TestIOWrapsCause(t *testing.T) {
	err := IO("opening noise words", fs.ErrNotExist)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "opening noise words: io failure: file does not exist", err.Error())
}
