package authflow

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// GetRouterSession retrieves the session a protected route middleware
// stored in the request locals.
func GetRouterSession(c router.Context, key string) (Session, error) {
	cookie := c.Locals(key)
	if cookie == nil {
		return nil, ErrUnableToFindSession
	}

	session, ok := cookie.(Session)
	if session == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	return session, nil
}

// RegisterAuthRoutes mounts the credential lifecycle endpoints
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(fmt.Sprintf("%s/:token", controller.Routes.Activate), controller.Activate).
		SetName("activate.get")

	app.Get(controller.Routes.Forgot, controller.ForgotShow).
		SetName("pwd-forgot.get")
	app.Post(controller.Routes.Forgot, controller.ForgotPost).
		SetName("pwd-forgot.post")

	app.Get(fmt.Sprintf("%s/:token", controller.Routes.Forgot), controller.PasswordResetForm).
		SetName("pwd-reset-do.get")
	app.Post(controller.Routes.Reset, controller.PasswordResetExecute).
		SetName("pwd-reset-do.post")
}

type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Activate string
	Forgot   string
	Reset    string
}

type AuthControllerViews struct {
	Login         string
	Register      string
	Forgot        string
	PasswordReset string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Tokens       TokenService
	Mailer       Mailer
	Policy       PasswordPolicy
	BaseURL      string
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithLogger sets the controller logger
func (a *AuthController) WithLogger(logger Logger) *AuthController {
	a.Logger = logger
	return a
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		Policy:       DefaultPasswordPolicy(),
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:    "/auth/login",
			Logout:   "/auth/logout",
			Register: "/auth/register",
			Activate: "/auth/activate",
			Forgot:   "/auth/forgot",
			Reset:    "/auth/reset",
		},
		Views: &AuthControllerViews{
			Login:         "login",
			Register:      "register",
			Forgot:        "forgot",
			PasswordReset: "password_reset",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	if c.Mailer == nil {
		panic("Missing Mailer in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession will return the password
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		// same message for unknown email and wrong password
		errs["authentication"] = "Invalid email or password"
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	redirect := a.Auther.GetRedirect(ctx, "/")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "You are logged out",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterMessage{},
	})
}

// RegistrationCreatePayload is the form paylaod
type RegistrationCreatePayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"password2" json:"password2"`
}

// Validate will validate the payload. Rules run on every field so the
// form shows the complete error list in one pass.
func (r RegistrationCreatePayload) Validate() error {
	policy := DefaultPasswordPolicy()

	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 50)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(policy.Rule())),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register user parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register user validate payload: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	req := RegisterMessage{
		Name:            payload.Name,
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
	}

	registerUser := NewRegisterHandler(a.Repo, a.Tokens, a.Mailer, a.BaseURL).
		WithPasswordPolicy(a.Policy).
		WithLogger(a.Logger)

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: ", "error", err)

		if IsDuplicateEmailError(err) {
			return flash.WithError(ctx, router.ViewContext{
				"error_message":  "This email is already registered",
				"system_message": "Error validating payload",
			}).Render(a.Views.Register, router.ViewContext{
				"record": payload,
				"errors": []string{"This email is already registered"},
			})
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  "An error occurred. Please try again.",
			"system_message": "Error processing registration",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Activation link sent. Check your inbox.",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// Activate redeems an activation link. Expired and tampered tokens get
// the same generic message.
func (a *AuthController) Activate(ctx router.Context) error {
	token := ctx.Param("token", "")

	var resp *ActivateResponse
	input := ActivateMessage{
		Token: token,
		OnResponse: func(r *ActivateResponse) {
			resp = r
		},
	}

	activate := NewActivateHandler(a.Repo, a.Tokens).
		WithPasswordPolicy(a.Policy).
		WithLogger(a.Logger)

	if err := activate.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("account activation error: ", "error", err)

		if IsDuplicateEmailError(err) {
			return flash.WithError(ctx, router.ViewContext{
				"error_message": "This email is already registered. Please log in.",
			}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message": "The link is invalid or has expired. Please register again.",
		}).Redirect(a.Routes.Register, fiber.StatusSeeOther)
	}

	if a.Debug && resp != nil {
		fmt.Println("======= ACTIVATED =======")
		fmt.Println(print.MaybePrettyJSON(resp.User))
		fmt.Println("=========================")
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account activated. You can now log in.",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AuthController) ForgotShow(ctx router.Context) error {
	return ctx.Render(a.Views.Forgot, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// ForgotPayload holds values for password reset
type ForgotPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ForgotPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) ForgotPost(ctx router.Context) error {
	payload := new(ForgotPayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("forgot password parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Forgot, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("forgot password validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Forgot, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := InitializePasswordResetMessage{
		Email: payload.Email,
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo, a.Tokens, a.Mailer, a.BaseURL).
		WithLogger(a.Logger)

	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset init error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  "An error occurred. Please try again.",
			"system_message": "Error processing request",
		}).Render(a.Views.Forgot, router.ViewContext{
			"record": payload,
		})
	}

	// same copy whether the address was known or not
	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "If that address exists, a reset link was sent. Check your email.",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// PasswordResetForm shows the change-password form for a valid reset link
func (a *AuthController) PasswordResetForm(ctx router.Context) error {
	token := ctx.Param("token", "")

	var resp *PasswordResetVerifyResponse
	input := PasswordResetVerifyMessage{
		Token: token,
		OnResponse: func(r *PasswordResetVerifyResponse) {
			resp = r
		},
	}

	verify := NewPasswordResetVerifyHandler(a.Repo, a.Tokens).WithLogger(a.Logger)

	if err := verify.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("reset link verification error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "The link is invalid or has expired.",
		}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	if resp == nil || !resp.Found {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "The link is invalid or has expired.",
		}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": map[string]string{},
		"reset": map[string]string{
			"token": token,
			"email": resp.Email,
		},
	})
}

// PasswordResetPayload holds values for password reset
type PasswordResetPayload struct {
	Token           string `form:"token" json:"token"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"password2" json:"password2"`
}

// Validate will validate the payload
func (r PasswordResetPayload) Validate() error {
	policy := DefaultPasswordPolicy()

	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Token,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.By(policy.Rule()),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) PasswordResetExecute(ctx router.Context) error {
	payload := new(PasswordResetPayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("password reset parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.PasswordReset, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
			"reset": map[string]string{
				"token": payload.Token,
			},
		})
	}

	input := FinalizePasswordResetMessage{
		Token:           payload.Token,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo, a.Tokens).
		WithPasswordPolicy(a.Policy).
		WithLogger(a.Logger)

	if err := finalizePwdReset.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("password reset finalize error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "The link is invalid or has expired. Please request a new one.",
		}).Redirect(a.Routes.Forgot, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Password updated. You can now log in.",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map for the templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if ok := asValidationErrors(err, &verrs); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

func asValidationErrors(err error, target *validation.Errors) bool {
	verrs, ok := err.(validation.Errors)
	if !ok {
		return false
	}
	*target = verrs
	return true
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
