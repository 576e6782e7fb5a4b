package pipeline

import "github.com/omegacore/omega/internal/channels"

// Sender and Senders are the pipeline's view of C12's channel port —
// re-exported here so callers that only need to build a Pipeline don't
// also need to import internal/channels directly.
type Sender = channels.Sender
type Senders = channels.Senders
