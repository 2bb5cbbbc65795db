package mathpix

import "github.com/sirupsen/logrus"

// Status is the remote processing state of an uploaded document.
type Status string

const (
	StatusReceived   Status = "received"
	StatusLoaded     Status = "loaded"
	StatusSplit      Status = "split"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// transitions is the set of state changes the service documents.
// Anything outside it still has to be tolerated: the API occasionally
// skips intermediate states between polls.
var transitions = map[Status][]Status{
	StatusReceived:   {StatusLoaded, StatusProcessing, StatusError},
	StatusLoaded:     {StatusSplit, StatusProcessing, StatusError},
	StatusSplit:      {StatusProcessing, StatusError},
	StatusProcessing: {StatusCompleted, StatusError},
}

// validTransition reports whether from -> to is a documented change.
// Staying in the same state between polls is always valid.
func validTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// observeTransition records a polled status change. Undocumented
// transitions are logged and accepted; the remote service is the
// source of truth for its own state.
func observeTransition(log *logrus.Entry, docID string, from, to Status) {
	if validTransition(from, to) {
		return
	}
	log.WithFields(logrus.Fields{
		"doc_id": docID,
		"from":   from,
		"to":     to,
	}).Warn("Unexpected status transition")
}
