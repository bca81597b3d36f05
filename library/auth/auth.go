// Package auth wraps the gin-middlewares auth helper that extracts the
// authenticated user from the request token.
package auth

import (
	ginMw "github.com/Laisky/gin-middlewares/v7"
)

var Instance *ginMw.Auth

func Initialize(secret []byte) (err error) {
	Instance, err = ginMw.NewAuth(secret)
	return err
}
