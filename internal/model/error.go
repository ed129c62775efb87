package model

import "errors"

var ErrValidation = errors.New("validation failed")
var ErrUnauthorized = errors.New("unauthorized")
var ErrSessionExpired = errors.New("session expired")
var ErrNotFound = errors.New("not found")
var ErrHiveAccountNotFound = errors.New("Hive account not found")
var ErrUpstream = errors.New("upstream error")
var ErrConfig = errors.New("missing configuration")
var ErrIdentityTaken = errors.New("identity already linked to another account")
var ErrChallengeExpired = errors.New("challenge expired or unknown")
