package ocrspace

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		server    *httptest.Server
		handler   http.HandlerFunc
		imageData []byte

		result *Result
		raw    []byte
		err    error
	)

	BeforeEach(func() {
		imageData = []byte("fake-jpeg-bytes")
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(sampleResponse))
		}
	})

	JustBeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(server.Close)

		client, clientErr := NewClient("test-key",
			WithBaseURL(server.URL),
			WithLanguage("ita"),
		)
		Expect(clientErr).NotTo(HaveOccurred())

		result, raw, err = client.ParseImage(context.Background(), imageData)
	})

	When("the provider responds successfully", func() {
		var (
			form   map[string][]string
			method string
		)

		BeforeEach(func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				method = r.Method
				r.ParseForm()
				form = r.PostForm
				w.Write([]byte(sampleResponse))
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("posts the request", func() {
			Expect(method).To(Equal(http.MethodPost))
		})

		It("sends the provider's form contract", func() {
			Expect(form).To(HaveKeyWithValue("apikey", []string{"test-key"}))
			Expect(form).To(HaveKeyWithValue("language", []string{"ita"}))
			Expect(form).To(HaveKeyWithValue("isOverlayRequired", []string{"true"}))
			Expect(form).To(HaveKeyWithValue("isTable", []string{"true"}))
			Expect(form).To(HaveKeyWithValue("OCREngine", []string{"2"}))
		})

		It("sends the image as a base64 data URI", func() {
			payload := form["base64Image"][0]
			Expect(payload).To(HavePrefix("data:image/jpg;base64,"))
			decoded, decodeErr := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, "data:image/jpg;base64,"))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(imageData))
		})

		It("returns the decoded result and the raw body", func() {
			Expect(result.Pages).To(HaveLen(1))
			Expect(string(raw)).To(Equal(sampleResponse))
		})
	})

	When("the provider returns a non-200 status", func() {
		BeforeEach(func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusForbidden)
			}
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("403"))
		})
	})

	When("the provider reports a processing error", func() {
		BeforeEach(func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{
					"ParsedResults": [{"FileParseExitCode": -10, "ParsedText": "", "ErrorMessage": "Unable to recognize the file type"}],
					"OCRExitCode": 4,
					"IsErroredOnProcessing": true,
					"ProcessingTimeInMilliseconds": 15
				}`))
			}
		})

		It("refuses the response with the provider's message", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Unable to recognize"))
		})
	})

	When("the body is not valid provider JSON", func() {
		BeforeEach(func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>gateway timeout</html>"))
			}
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("NewClient", func() {
	It("requires an api key", func() {
		_, err := NewClient("")
		Expect(err).To(HaveOccurred())
	})
})
