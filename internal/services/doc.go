// Package services wraps the remote APIs the curator depends on.
//
// # YouTube Data API
//
// [YouTubeService] performs the handful of Data API v3 calls the pipeline needs: paging through
// a playlist, batched video and channel lookups (at most [MaxBatch] ids), item insertion and
// deletion. Every API resource is converted to a typed record from the models package before it
// leaves this package.
//
// Whether a video is a short is not part of the API. [YouTubeService.IsShorts] sends a HEAD
// request to the shorts URL of the video with redirects disabled: regular videos redirect to the
// watch page, shorts answer 200.
//
// # Outcomes
//
// Failed calls return an [*APIError] whose [Outcome] is one of [NotFound], [QuotaExceeded] or
// [Fatal]. Callers branch on [OutcomeOf] rather than inspecting HTTP details:
//
//	switch services.OutcomeOf(err) {
//	case services.NotFound:      // empty result, maybe a warning
//	case services.QuotaExceeded: // skip for this run
//	default:                     // abort
//	}
//
// # Credentials
//
// [Credentials] stores an authorized user token in the layout used by Google's client libraries.
// Local runs keep it in a token file; unattended runs receive it as a URL-safe base64 blob and
// publish the refreshed blob through a [SecretStore] such as [GitHubSecretStore].
//
// # Throttling
//
// [RateLimitedTransport] spaces requests with a token bucket. There is no retry anywhere: a
// failed insertion is recorded in the failure ledger and replayed on the next run.
package services
