// Package server hosts the short-lived HTTP listener used by the local OAuth flow.
//
// # Router
//
// The [Router] interface registers handlers behind a [Middleware] stack. [BasicRouter] is backed
// by [http.ServeMux] and filters by method. Middleware wraps in reverse order: the first one added
// is the outermost.
//
// # OAuth callback
//
// [OAuthHandler] serves Google's redirect to [CallbackPath]. It checks the state parameter,
// exchanges the authorization code for a token and publishes exactly one [OAuthResult]. Later
// callbacks are rejected.
//
// `ytcurate auth login` starts the listener on the configured host and port, opens the consent
// page in a browser and shuts the listener down once a result arrives.
package server
