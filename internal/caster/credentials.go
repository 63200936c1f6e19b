package caster

import (
	"encoding/base64"
	"fmt"
)

// Credentials is the basic-auth material for a protected mountpoint.
type Credentials struct {
	Username string
	Password string
}

// Authorization renders the value of the Authorization request header.
func (c Credentials) Authorization() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Username+":"+c.Password))
}

// String keeps the password out of logs and %v output.
func (c Credentials) String() string {
	return c.Username + ":***"
}

// GoString keeps the password out of %#v output as well.
func (c Credentials) GoString() string {
	return fmt.Sprintf("caster.Credentials{Username: %q, Password: \"***\"}", c.Username)
}
