package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/apierr"
)

func int64Param(c *gin.Context, name string) (int64, error) {
	return parseID(name, c.Param(name))
}

func int64Query(c *gin.Context, name string) (int64, error) {
	return parseID(name, c.Query(name))
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.New(http.StatusBadRequest, "invalid_"+name, fmt.Errorf("invalid %s %q", name, raw))
	}
	return id, nil
}

// optionalInt64Query is zero when the parameter is absent.
func optionalInt64Query(c *gin.Context, name string) (int64, error) {
	if strings.TrimSpace(c.Query(name)) == "" {
		return 0, nil
	}
	return int64Query(c, name)
}

func boolQuery(c *gin.Context, name string) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", errors.New("request body is not valid JSON"))
	}
	return nil
}
