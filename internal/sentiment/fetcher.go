// Package sentiment reads call transcripts from Amazon Connect Contact Lens
// and derives the customer's sentiment from them.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/connectcontactlens"
	lenstypes "github.com/aws/aws-sdk-go-v2/service/connectcontactlens/types"
	"github.com/dennisdiepolder/calldesk/internal/metrics"
	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/rs/zerolog"
)

// CustomerRole is the participant role of the caller
const CustomerRole = "CUSTOMER"

const pageSize = 100

var (
	errNotConfigured = errors.New("transcript analysis is not configured")
	errConsumed      = errors.New("segment sequence already consumed")
)

// Fetcher retrieves transcript segments for a contact
type Fetcher struct {
	client     connectcontactlens.ListRealtimeContactAnalysisSegmentsAPIClient
	instanceID string
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewClient builds a Contact Lens client; endpoint overrides the AWS
// endpoint when set.
func NewClient(ctx context.Context, region, endpoint string) (*connectcontactlens.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return connectcontactlens.NewFromConfig(awsCfg, func(o *connectcontactlens.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// NewFetcher creates a fetcher for one Connect instance
func NewFetcher(client connectcontactlens.ListRealtimeContactAnalysisSegmentsAPIClient, instanceID string, timeout time.Duration, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:     client,
		instanceID: instanceID,
		timeout:    timeout,
		logger:     logger.With().Str("component", "sentiment").Logger(),
	}
}

// Segments lazily walks the contact's transcript, page by page. Segments
// without a transcript are skipped. The sequence can be ranged over once.
func (f *Fetcher) Segments(ctx context.Context, contactID string) iter.Seq2[types.TranscriptSegment, error] {
	var used atomic.Bool
	return func(yield func(types.TranscriptSegment, error) bool) {
		if used.Swap(true) {
			yield(types.TranscriptSegment{}, errConsumed)
			return
		}
		if f.instanceID == "" || f.client == nil {
			yield(types.TranscriptSegment{}, errNotConfigured)
			return
		}

		paginator := connectcontactlens.NewListRealtimeContactAnalysisSegmentsPaginator(f.client,
			&connectcontactlens.ListRealtimeContactAnalysisSegmentsInput{
				InstanceId: aws.String(f.instanceID),
				ContactId:  aws.String(contactID),
				MaxResults: aws.Int32(pageSize),
			})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(types.TranscriptSegment{}, err)
				return
			}
			for _, seg := range page.Segments {
				if seg.Transcript == nil {
					continue
				}
				if !yield(Normalize(*seg.Transcript), nil) {
					return
				}
			}
		}
	}
}

// FetchTranscript collects every segment of a contact within the fetch
// timeout. Any failure, the deadline included, is a TranscriptFetchError;
// an empty transcript is not an error.
func (f *Fetcher) FetchTranscript(ctx context.Context, contactID string) ([]types.TranscriptSegment, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, &types.ValidationError{Field: "contactId", Reason: "is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	segments := []types.TranscriptSegment{}
	for seg, err := range f.Segments(ctx, contactID) {
		if err != nil {
			metrics.Get().RecordTranscriptFetch("error", time.Since(start))
			f.logger.Warn().Err(err).Str("contact_id", contactID).Msg("transcript fetch failed")
			return nil, &types.TranscriptFetchError{ContactID: contactID, Err: err}
		}
		segments = append(segments, seg)
	}

	metrics.Get().RecordTranscriptFetch("ok", time.Since(start))
	f.logger.Debug().
		Str("contact_id", contactID).
		Int("segments", len(segments)).
		Dur("elapsed", time.Since(start)).
		Msg("transcript fetched")
	return segments, nil
}

// Normalize maps a Contact Lens transcript to a segment, keeping absent
// fields nil
func Normalize(t lenstypes.Transcript) types.TranscriptSegment {
	seg := types.TranscriptSegment{
		Role:    t.ParticipantRole,
		Content: t.Content,
	}
	if t.Sentiment != "" {
		s := string(t.Sentiment)
		seg.Sentiment = &s
	}
	return seg
}

// CustomerSentiment returns the sentiment of the last customer segment that
// reports one. Agent and system segments never count.
func CustomerSentiment(segments []types.TranscriptSegment) (string, bool) {
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg.Sentiment == nil || seg.Role == nil || !strings.EqualFold(*seg.Role, CustomerRole) {
			continue
		}
		return *seg.Sentiment, true
	}
	return "", false
}
