// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

//go:build integration

package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type userBody struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type authBody struct {
	Msg   string   `json:"msg"`
	Token string   `json:"token"`
	User  userBody `json:"user"`
}

func call(method, path, token string, body any) (*http.Response, []byte) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(env.ctx, method, env.api.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, buf.Bytes()
}

func credentials(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}

var _ = Describe("Authentication", func() {
	BeforeEach(func() {
		env.resetUsers()
	})

	It("registers, logs in and verifies a user", func() {
		resp, raw := call(http.MethodPost, "/api/auth/register", "", credentials("alice", "secret1"))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var registered authBody
		Expect(json.Unmarshal(raw, &registered)).To(Succeed())
		Expect(registered.Msg).To(Equal("User registered successfully"))
		Expect(registered.Token).NotTo(BeEmpty())
		Expect(registered.User.Username).To(Equal("alice"))
		Expect(string(raw)).NotTo(ContainSubstring("password"))

		resp, raw = call(http.MethodPost, "/api/auth/login", "", credentials("alice", "secret1"))
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var loggedIn authBody
		Expect(json.Unmarshal(raw, &loggedIn)).To(Succeed())
		Expect(loggedIn.User).To(Equal(registered.User))

		resp, raw = call(http.MethodGet, "/api/auth/verify", loggedIn.Token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var verified authBody
		Expect(json.Unmarshal(raw, &verified)).To(Succeed())
		Expect(verified.User).To(Equal(registered.User))
	})

	It("rejects a duplicate username", func() {
		resp, _ := call(http.MethodPost, "/api/auth/register", "", credentials("bob", "secret1"))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		resp, raw := call(http.MethodPost, "/api/auth/register", "", credentials("bob", "another1"))
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(string(raw)).To(ContainSubstring("Username already exists"))
	})

	It("treats usernames as case-sensitive", func() {
		resp, _ := call(http.MethodPost, "/api/auth/register", "", credentials("Carol", "secret1"))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		resp, _ = call(http.MethodPost, "/api/auth/register", "", credentials("carol", "secret1"))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
	})

	It("does not distinguish an unknown user from a wrong password", func() {
		resp, _ := call(http.MethodPost, "/api/auth/register", "", credentials("dave", "secret1"))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		wrongPass, wrongBody := call(http.MethodPost, "/api/auth/login", "", credentials("dave", "nope123"))
		unknown, unknownBody := call(http.MethodPost, "/api/auth/login", "", credentials("nobody", "secret1"))
		Expect(wrongPass.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(unknown.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(wrongBody).To(Equal(unknownBody))
	})

	It("rejects missing and tampered tokens", func() {
		resp, raw := call(http.MethodGet, "/api/auth/verify", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(string(raw)).To(ContainSubstring("No token provided"))

		resp, raw = call(http.MethodGet, "/api/auth/verify", "not.a.token", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(string(raw)).To(ContainSubstring("Token is not valid"))
	})

	It("admits exactly one of many concurrent registrations", func() {
		const attempts = 8
		statuses := make([]int, attempts)
		var wg sync.WaitGroup
		for i := range attempts {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				resp, _ := call(http.MethodPost, "/api/auth/register", "", credentials("erin", "secret1"))
				statuses[i] = resp.StatusCode
			}()
		}
		wg.Wait()

		created := 0
		for _, status := range statuses {
			if status == http.StatusCreated {
				created++
			} else {
				Expect(status).To(Equal(http.StatusBadRequest))
			}
		}
		Expect(created).To(Equal(1))

		var count int
		Expect(env.pool.QueryRow(env.ctx, "SELECT count(*) FROM users WHERE username = 'erin'").Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
	})

	It("counts auth operations", func() {
		before := testutil.ToFloat64(env.metrics.AuthOperations.WithLabelValues("register", "ok"))
		resp, _ := call(http.MethodPost, "/api/auth/register", "", credentials("frank", "secret1"))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(testutil.ToFloat64(env.metrics.AuthOperations.WithLabelValues("register", "ok"))).To(Equal(before + 1))
	})
})

var _ = Describe("Transaction scoring", func() {
	transaction := map[string]any{
		"amount":        1250.5,
		"senderUpiId":   "alice@upi",
		"receiverUpiId": "shop@upi",
		"features":      map[string]float64{"V1": -1.36, "V28": 0.02},
	}

	It("forwards the transaction and shapes a legitimate result", func() {
		env.prediction.Store("Legitimate")

		resp, raw := call(http.MethodPost, "/api/detect", "", transaction)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var result map[string]any
		Expect(json.Unmarshal(raw, &result)).To(Succeed())
		Expect(result["prediction"]).To(Equal("Legitimate"))
		Expect(result["isFraud"]).To(BeFalse())
		Expect(result["riskScore"]).To(BeNumerically("<", 40))
		Expect(result["transactionId"]).To(HavePrefix("UPI"))

		payload := env.lastPayload.Load().(map[string]any)
		Expect(payload["Amount"]).To(BeNumerically("==", 1250.5))
		Expect(payload["V1"]).To(BeNumerically("==", -1.36))
		Expect(payload["V14"]).To(BeNumerically("==", 0))
	})

	It("flags fraud with a high risk score", func() {
		env.prediction.Store("Fraud")
		defer env.prediction.Store("Legitimate")

		resp, raw := call(http.MethodPost, "/api/detect", "", transaction)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var result map[string]any
		Expect(json.Unmarshal(raw, &result)).To(Succeed())
		Expect(result["isFraud"]).To(BeTrue())
		Expect(result["riskScore"]).To(BeNumerically(">=", 70))
	})

	It("rejects a transaction with missing fields", func() {
		resp, raw := call(http.MethodPost, "/api/detect", "", map[string]any{"amount": 10})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(strings.Contains(string(raw), "Missing required fields")).To(BeTrue())
	})
})

var _ = Describe("Health", func() {
	It("reports the server as running", func() {
		resp, raw := call(http.MethodGet, "/health", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(raw)).To(ContainSubstring("Server is running"))
	})
})
