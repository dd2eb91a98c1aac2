package workflowerrors

import (
	"errors"

	goerrors "github.com/go-errors/errors"
)

func stackHere() string {
	goerr := goerrors.New(errors.New("panic"))
	return string(goerr.Stack())
}
