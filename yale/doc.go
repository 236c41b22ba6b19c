// Package yale is a client for the Yale Smart Living cloud API: arm and
// disarm the alarm panel, read sensor, health and lock status, operate door
// locks and trigger the panic function.
//
// A Client owns one bearer token. The token is obtained on the first call
// (or an explicit Login), refreshed when it expires, and refreshed once more
// when the server rejects it with 401; a second rejection surfaces as
// *AuthError. Nothing else is retried.
//
// Every operation is one blocking round trip bounded by the client's call
// timeout. The Client does not synchronise access to its token: share it
// between goroutines only behind your own lock.
//
// Errors are typed: *AuthError, *NetworkError, *ServerError (including a
// vendor failure code inside a 200 response) and *NotFoundError.
//
// Example:
//
//	client, err := yale.NewClient(yale.Credentials{Username: user, Password: pass})
//	if err != nil {
//		return err
//	}
//
//	if err := client.Panel.ArmFull(ctx); err != nil {
//		return err
//	}
//
//	for lock, err := range client.Locks.All(ctx) {
//		if err != nil {
//			return err
//		}
//
//		fmt.Println(lock)
//	}
package yale
