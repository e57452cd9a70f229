// Package auth is the authentication core of pondana. It turns form
// submissions and callback links into calls on an external IdentityProvider
// and never keeps sessions itself: the provider reads and writes them through
// the session.Storage it was built with.
//
// Session actions:
//   - SessionActions drives sign-in, sign-up and sign-out for server-rendered
//     pages. Failures come back as a Result carrying a translated message, and
//     every successful change asks the Revalidator to drop the cached layout.
//   - ClientActions does the same for browser-side handles without touching
//     the view cache.
//
// Account actions:
//   - AccountActions re-verifies the current password before mailing a
//     recovery link, confirms new passwords and starts email changes.
//   - RecoveryGuard only admits a password update while the session carries a
//     recovery entry in its assurance level. Anything else is redirected.
//
// Callback:
//   - The /auth/callback route finishes OAuth sign-ins (code) and mailed links
//     (token_hash). SafeNext keeps the follow-up redirect on this site.
//
// The HTTP surface lives in AuthController, registered on a go-router router
// with RegisterAuthRoutes. provider/local ships a bun backed provider.
package auth
