package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type item struct {
	ID   int64  `json:"id" binding:"required,gt=0"`
	Note string `json:"note" binding:"notblank"`
}

type payload struct {
	Items []item `json:"items" binding:"required,min=1,dive"`
}

type query struct {
	PerPage int `form:"perPage" binding:"omitempty,max=100"`
}

func init() {
	gin.SetMode(gin.TestMode)
	Setup()
}

func bindBody(body string) map[string]string {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var p payload
	return Bind(c, &p)
}

func TestBind_Valid(t *testing.T) {
	assert.Nil(t, bindBody(`{"items":[{"id":1,"note":"ok"}]}`))
}

func TestBind_ReportsDivedFieldPath(t *testing.T) {
	fields := bindBody(`{"items":[{"id":1,"note":"ok"},{"id":0,"note":"   "}]}`)

	assert.Contains(t, fields, "items[1].id")
	assert.Equal(t, "note must not be blank", fields["items[1].note"])
}

func TestBind_MalformedJSON(t *testing.T) {
	fields := bindBody(`{"items":`)

	assert.Len(t, fields, 1)
	assert.Contains(t, fields, "body")
}

func TestBindQuery(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?perPage=500", nil)

	var q query
	fields := BindQuery(c, &q)

	assert.Contains(t, fields, "perPage")
}
