// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

//go:build integration

package auth_test

import (
	"net/http"
	"net/url"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

func registration(name, email, password string) url.Values {
	return url.Values{
		"nombre":           {name},
		"email":            {email},
		"password":         {password},
		"repetir_password": {password},
	}
}

func login(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

var _ = Describe("Account flows", func() {
	var s *site

	BeforeEach(func() {
		env.truncate()
		s = newSite()
	})

	It("registers, confirms and signs in", func() {
		rec := s.post("/auth/registro", registration("Ana", "ana@example.com", "secret1"))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Cuenta Creada Correctamente"))

		rec = s.post("/auth/login", login("ana@example.com", "secret1"))
		Expect(rec.Body.String()).To(ContainSubstring("Debes confirmar tu cuenta para poder iniciar sesión"))
		Expect(sessionCookie(rec)).To(BeNil())

		token := s.outbox.lastToken()
		rec = s.get("/auth/confirmar/" + token)
		Expect(rec.Body.String()).To(ContainSubstring("La cuenta se confirmó correctamente"))

		By("rejecting the spent token")
		rec = s.get("/auth/confirmar/" + token)
		Expect(rec.Body.String()).To(ContainSubstring("Hubo un error al confirmar tu cuenta"))

		rec = s.post("/auth/login", login("ANA@example.com", "secret1"))
		Expect(rec.Code).To(Equal(http.StatusSeeOther))
		cookie := sessionCookie(rec)
		Expect(cookie).NotTo(BeNil())

		rec = s.get("/mis-propiedades", cookie)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Hola Ana"))
	})

	It("rejects a second registration with the same email", func() {
		Expect(s.post("/auth/registro", registration("Ana", "ana@example.com", "secret1")).Code).
			To(Equal(http.StatusOK))

		rec := s.post("/auth/registro", registration("Otra", "Ana@Example.com", "secret2"))
		Expect(rec.Body.String()).To(ContainSubstring("El usuario ya está registrado"))
	})

	It("resets a forgotten password", func() {
		s.post("/auth/registro", registration("Ana", "ana@example.com", "secret1"))
		s.get("/auth/confirmar/" + s.outbox.lastToken())

		rec := s.post("/auth/olvide-password", url.Values{"email": {"ana@example.com"}})
		Expect(rec.Body.String()).To(ContainSubstring("Hemos enviado un email con las instrucciones"))

		token := s.outbox.lastToken()
		rec = s.get("/auth/olvide-password/" + token)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = s.post("/auth/olvide-password/"+token, url.Values{"password": {"nuevo123"}})
		Expect(rec.Body.String()).To(ContainSubstring("Tu password se actualizó correctamente"))

		rec = s.post("/auth/login", login("ana@example.com", "secret1"))
		Expect(rec.Body.String()).To(ContainSubstring("El password es incorrecto"))

		rec = s.post("/auth/login", login("ana@example.com", "nuevo123"))
		Expect(rec.Code).To(Equal(http.StatusSeeOther))
	})
})
