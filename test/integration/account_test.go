// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

const password = "Najdorf1924"

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type errorBody struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// call sends a request to the API and decodes a JSON response into out when
// out is non-nil. It returns the status code.
func call(method, path, token string, body io.Reader, contentType string, out any) int {
	GinkgoHelper()
	req, err := http.NewRequest(method, env.server.URL+path, body)
	Expect(err).NotTo(HaveOccurred())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	if out != nil {
		Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
	}
	return resp.StatusCode
}

func callJSON(method, path, token string, in, out any) int {
	GinkgoHelper()
	raw, err := json.Marshal(in)
	Expect(err).NotTo(HaveOccurred())
	return call(method, path, token, bytes.NewReader(raw), "application/json", out)
}

func register(username string) {
	GinkgoHelper()
	status := callJSON(http.MethodPost, "/users/", "", map[string]string{
		"username":              username,
		"email":                 username + "@example.com",
		"password":              password,
		"password_confirmation": password,
	}, nil)
	Expect(status).To(Equal(http.StatusCreated))
}

func login(username string) tokenPair {
	GinkgoHelper()
	form := url.Values{"username": {username}, "password": {password}}
	var pair tokenPair
	status := call(http.MethodPost, "/jwt/token/", "", strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded", &pair)
	Expect(status).To(Equal(http.StatusOK))
	return pair
}

var _ = Describe("Account lifecycle", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		Expect(env.db.Truncate(ctx)).To(Succeed())
	})

	It("registers, logs in and refreshes", func() {
		register("capablanca")
		pair := login("capablanca")
		Expect(pair.TokenType).To(Equal("Bearer"))
		Expect(pair.RefreshToken).NotTo(BeEmpty())

		var me map[string]string
		Expect(call(http.MethodGet, "/jwt/users/me/", pair.AccessToken, nil, "", &me)).To(Equal(http.StatusOK))
		Expect(me).To(HaveKeyWithValue("username", "capablanca"))

		var refreshed tokenPair
		Expect(call(http.MethodPost, "/jwt/refresh/", pair.RefreshToken, nil, "", &refreshed)).To(Equal(http.StatusOK))
		Expect(refreshed.AccessToken).NotTo(BeEmpty())

		By("rejecting a refresh token used as an access token")
		var body errorBody
		Expect(call(http.MethodGet, "/jwt/users/me/", pair.RefreshToken, nil, "", &body)).To(Equal(http.StatusUnauthorized))
	})

	It("rejects a duplicate username", func() {
		register("alekhine")

		var body errorBody
		status := callJSON(http.MethodPost, "/users/", "", map[string]string{
			"username":              "alekhine",
			"email":                 "other@example.com",
			"password":              password,
			"password_confirmation": password,
		}, &body)
		Expect(status).To(Equal(http.StatusConflict))
		Expect(body.Code).To(Equal("USER_ALREADY_EXISTS"))
	})

	It("creates and then replaces a profile", func() {
		register("botvinnik")
		token := login("botvinnik").AccessToken

		var countryID int64
		Expect(env.db.Pool.QueryRow(ctx,
			`INSERT INTO countries (name, code) VALUES ('Russia', 'RU') RETURNING id`).Scan(&countryID)).To(Succeed())

		var countries []map[string]any
		Expect(call(http.MethodGet, "/countries/", "", nil, "", &countries)).To(Equal(http.StatusOK))
		Expect(countries).To(HaveLen(1))

		var saved map[string]any
		status := callJSON(http.MethodPut, "/users/me/profile/", token, map[string]any{
			"name":          "mikhail",
			"gender":        "Male",
			"date_of_birth": "1911-08-17",
			"country_id":    countryID,
		}, &saved)
		Expect(status).To(Equal(http.StatusCreated))
		Expect(saved).To(HaveKeyWithValue("name", "Mikhail"))

		status = callJSON(http.MethodPut, "/users/me/profile/", token, map[string]any{
			"name":       "Mikhail",
			"surname":    "Botvinnik",
			"country_id": countryID,
		}, &saved)
		Expect(status).To(Equal(http.StatusOK))
		Expect(saved).To(HaveKeyWithValue("surname", "Botvinnik"))

		var body errorBody
		status = callJSON(http.MethodPut, "/users/me/profile/", token, map[string]any{
			"country_id": countryID + 100,
		}, &body)
		Expect(status).To(Equal(http.StatusNotFound))
	})

	It("guards role administration with the roles.assign privilege", func() {
		register("tal_mikhail")
		register("petrosian")
		adminToken := login("tal_mikhail").AccessToken

		target, err := env.users.GetByUsername(ctx, "petrosian")
		Expect(err).NotTo(HaveOccurred())
		path := "/admin/users/" + target.UUID.String() + "/roles/moderator"

		_, _, err = env.roles.EnsureRole(ctx, "moderator", nil)
		Expect(err).NotTo(HaveOccurred())

		var body errorBody
		Expect(call(http.MethodPost, path, adminToken, nil, "", &body)).To(Equal(http.StatusForbidden))

		By("granting the privilege through a role")
		admin, _, err := env.roles.EnsureRole(ctx, "admin", nil)
		Expect(err).NotTo(HaveOccurred())
		assign, _, err := env.roles.EnsurePrivilege(ctx, "roles.assign", nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = env.roles.Repository().GrantPrivilege(ctx, admin.ID, assign.ID)
		Expect(err).NotTo(HaveOccurred())
		_, err = env.roles.AssignRoleByName(ctx, mustUserID("tal_mikhail"), "admin")
		Expect(err).NotTo(HaveOccurred())

		Expect(call(http.MethodPost, path, adminToken, nil, "", nil)).To(Equal(http.StatusNoContent))
		Expect(call(http.MethodPost, path, adminToken, nil, "", &body)).To(Equal(http.StatusConflict))

		var privileges []map[string]any
		Expect(call(http.MethodGet, "/users/me/privileges/", adminToken, nil, "", &privileges)).To(Equal(http.StatusOK))
		Expect(privileges).To(ContainElement(HaveKeyWithValue("name", "roles.assign")))

		Expect(call(http.MethodDelete, path, adminToken, nil, "", nil)).To(Equal(http.StatusNoContent))
		Expect(call(http.MethodDelete, path, adminToken, nil, "", &body)).To(Equal(http.StatusNotFound))

		By("revoking the admin role takes effect on the next request")
		Expect(env.roles.RevokeRoleByName(ctx, mustUserID("tal_mikhail"), "admin")).To(Succeed())
		Expect(call(http.MethodPost, path, adminToken, nil, "", &body)).To(Equal(http.StatusForbidden))
	})
})

func mustUserID(username string) int64 {
	GinkgoHelper()
	u, err := env.users.GetByUsername(context.Background(), username)
	Expect(err).NotTo(HaveOccurred())
	return u.ID
}
