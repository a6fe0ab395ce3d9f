// cmd/api/main.go
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
)

func main() {
	loanServiceURL, _ := url.Parse(getEnv("LOAN_SERVICE_URL", "http://localhost:8082"))
	userServiceURL, _ := url.Parse(getEnv("USER_SERVICE_URL", "http://localhost:8081"))
	booksServiceURL, _ := url.Parse(getEnv("BOOKS_SERVICE_URL", "http://localhost:8085"))

	loanProxy := httputil.NewSingleHostReverseProxy(loanServiceURL)
	userProxy := httputil.NewSingleHostReverseProxy(userServiceURL)
	booksProxy := httputil.NewSingleHostReverseProxy(booksServiceURL)

	http.Handle("/api/v1/loans/", http.StripPrefix("/api/v1", loanProxy))
	http.Handle("/api/v1/users/", http.StripPrefix("/api/v1/users", userProxy))
	http.Handle("/api/v1/books/", http.StripPrefix("/api/v1/books", booksProxy))

	port := getEnv("PORT", "8080")
	log.Printf("API Gateway listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
