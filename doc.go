// Package authflow implements the credential lifecycle for a web
// application: registration with email activation, cookie based
// sessions, and a token driven password reset flow.
//
// Registration:
//   - RegisterHandler validates the submitted profile and emails an
//     activation link instead of writing a row. The account only exists
//     once ActivateHandler redeems the link, so abandoned signups leave
//     nothing behind.
//   - Activation tokens are short lived HMAC signed JWTs carrying the
//     pending profile. ActivateHandler re-validates the password policy
//     and creates the account already verified.
//
// Sessions:
//   - Auther exchanges credentials for a signed session token, and
//     RouteAuthenticator moves that token through an HTTP-only cookie.
//     ProtectedRoute gates handlers on a valid session and stashes it
//     in the request locals.
//
// Password reset:
//   - InitializePasswordResetHandler issues a reset token, persists it
//     on the account, and emails the link. The persisted copy makes
//     every link single use: finalizing compares the presented token
//     against the stored one and clears it in the same transaction.
package authflow
