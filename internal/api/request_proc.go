package api

import (
	"github.com/labstack/echo/v4"
	"github.com/yakoovad/scrapyard-registration/internal/service"
)

// ProcessRequest runs steps over req in order and stops at the first failure.
func ProcessRequest[T any](e echo.Context, req T, steps ...func(echo.Context, T) *service.Error) *service.Error {
	for _, step := range steps {
		if err := step(e, req); err != nil {
			return err
		}
	}
	return nil
}
