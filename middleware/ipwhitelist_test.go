package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIPWhitelist(t *testing.T) {
	cases := []struct {
		name  string
		allow []string
		ip    string
		want  int
	}{
		{"empty list allows all", nil, "1.2.3.4", http.StatusOK},
		{"exact match", []string{"192.168.1.1"}, "192.168.1.1", http.StatusOK},
		{"not listed", []string{"10.0.0.1"}, "1.2.3.4", http.StatusForbidden},
		{"second of two", []string{"10.0.0.1", "10.0.0.2"}, "10.0.0.2", http.StatusOK},
		{"neighbour of two", []string{"10.0.0.1", "10.0.0.2"}, "10.0.0.3", http.StatusForbidden},
		{"inside cidr", []string{"192.168.0.0/16", " 10.0.0.1 "}, "192.168.3.4", http.StatusOK},
		{"trimmed entry", []string{"192.168.0.0/16", " 10.0.0.1 "}, "10.0.0.1", http.StatusOK},
		{"outside cidr", []string{"192.168.0.0/16"}, "172.16.0.1", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(IPWhitelist(tc.allow))
			r.GET("/api/admin/sync", func(c *gin.Context) { c.Status(http.StatusOK) })
			assert.Equal(t, tc.want, hit(r, "/api/admin/sync", tc.ip))
		})
	}
}
