// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package web

import "github.com/bienesraices/bienesraices/internal/auth"

// spanish maps the auth package's messages to the wording shown on the
// pages. The auth package keeps English text for logs and errors.
var spanish = map[string]string{
	auth.MsgEmailRequired:    "El email es obligatorio",
	auth.MsgEmailInvalid:     "Eso no parece un email",
	auth.MsgPasswordRequired: "El password es obligatorio",
	auth.MsgNameRequired:     "El nombre es obligatorio",
	auth.MsgPasswordTooShort: "El password debe ser de al menos 6 caracteres",
	auth.MsgPasswordMismatch: "Los passwords no son iguales",

	auth.ErrAccountNotFound.Error():   "El usuario no existe",
	auth.ErrNotConfirmed.Error():      "Debes confirmar tu cuenta para poder iniciar sesión",
	auth.ErrIncorrectPassword.Error(): "El password es incorrecto",
	auth.ErrAlreadyRegistered.Error(): "El usuario ya está registrado",
	auth.ErrTokenInvalid.Error():      "El enlace no es válido o ya fue utilizado",
}

// localize returns the page wording for msg, or msg itself when none exists.
func localize(msg string) string {
	if es, ok := spanish[msg]; ok {
		return es
	}
	return msg
}

func localizeViolations(violations []auth.Violation) []auth.Violation {
	out := make([]auth.Violation, len(violations))
	for i, v := range violations {
		v.Message = localize(v.Message)
		out[i] = v
	}
	return out
}
