package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		id, _ := c.Locals(requestIDHeader).(string)
		return c.SendString(id)
	})

	cases := []struct {
		name string
		in   string
		keep bool
	}{
		{name: "missing", in: "", keep: false},
		{name: "client supplied", in: "req-0f1e2d", keep: true},
		{name: "too long", in: strings.Repeat("a", maxRequestIDLen+1), keep: false},
		{name: "whitespace", in: "abc def", keep: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/", nil)
			if tc.in != "" {
				req.Header.Set(requestIDHeader, tc.in)
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			got := resp.Header.Get(requestIDHeader)
			if tc.keep {
				if got != tc.in {
					t.Fatalf("expected %q echoed, got %q", tc.in, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected a generated uuid, got %q", got)
			}
		})
	}
}
