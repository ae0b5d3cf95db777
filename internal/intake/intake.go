package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/config"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/dataurl"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/logging"
	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

// ErrPolicy is returned for an unknown video failure policy
var ErrPolicy = errors.New("unknown intake policy")

// VideoConverter converts a video data URL to MP4
type VideoConverter interface {
	ToMP4(ctx context.Context, dataURL string) (*models.MediaBuffer, error)
}

// Normalizer rewrites submission videos to MP4 before they are stored
type Normalizer struct {
	video  VideoConverter
	policy string
	logger *logging.Logger
}

// NewNormalizer creates a normalizer applying policy to failed conversions
func NewNormalizer(video VideoConverter, policy string, logger *logging.Logger) (*Normalizer, error) {
	switch policy {
	case "":
		policy = config.IntakePolicyKeepOriginal
	case config.IntakePolicyKeepOriginal, config.IntakePolicyFail:
	default:
		return nil, fmt.Errorf("%w: %q", ErrPolicy, policy)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Normalizer{video: video, policy: policy, logger: logger}, nil
}

// Normalize returns sub with its video converted to an MP4 data URL.
// The second return value reports whether the video was rewritten.
// When conversion fails the keep_original policy returns sub unchanged,
// the fail policy returns the error. A nil sub is returned as is.
func (n *Normalizer) Normalize(ctx context.Context, sub *models.Submission) (*models.Submission, bool, error) {
	if !sub.HasVideo() {
		return sub, false, nil
	}

	original := *sub.VideoDataURL
	buf, err := n.video.ToMP4(ctx, original)
	if err != nil {
		if n.policy == config.IntakePolicyFail || ctx.Err() != nil {
			return nil, false, fmt.Errorf("failed to normalize video of submission %s: %w", sub.ID, err)
		}
		n.logger.WithSubmissionID(sub.ID).WithError(err).Warn("Video conversion failed, keeping original")
		return sub, false, nil
	}

	converted := dataurl.Encode(buf)
	if converted == original {
		return sub, false, nil
	}

	out := *sub
	out.VideoDataURL = &converted
	return &out, true, nil
}
