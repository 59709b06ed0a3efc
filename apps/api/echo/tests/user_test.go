package tests

import (
	"bytes"
	"context"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/kyleramirez143/ACTION-LMS-sub001/apps/api/echo"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
	emailsvc "github.com/kyleramirez143/ACTION-LMS-sub001/services/email"
	testutil "github.com/kyleramirez143/ACTION-LMS-sub001/tests"
)

func Test_userApi_userQuery(t *testing.T) {
	app := setup(t)

	path := func(search, ordering string, createdFrom, createdTo time.Time, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		if !createdFrom.IsZero() {
			v.Add("created_from", createdFrom.Format(time.RFC3339))
		}
		if !createdTo.IsZero() {
			v.Add("created_to", createdTo.Format(time.RFC3339))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/api/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	base := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	t1 := base.Add(1 * time.Hour)
	t2 := base.Add(2 * time.Hour)
	t3 := base.Add(3 * time.Hour)
	t4 := base.Add(4 * time.Hour)
	t5 := base.Add(5 * time.Hour)

	repo := app.UserRepo
	usr2 := testutil.CreateUser(t, repo, "King", "user02", "king@test.cd", "", nil, true, base)
	trainee := testutil.CreateUser(t, repo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleTrainee}, true, base.Add(10*time.Minute))
	owner := testutil.CreateUser(t, repo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleAdminOwner}, true, base.Add(20*time.Minute))
	naughty := testutil.CreateUser(t, repo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleTrainee}, false, base.Add(30*time.Minute)) // 😂
	usr1 := testutil.CreateUser(t, repo, "User", "awe", "awe@test.cd", "", nil, true, t1)
	admin := testutil.CreateUser(t, repo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true, t2)
	trainer := testutil.CreateUser(t, repo, "Trainer", "trainer", "trainer@test.cd", "", []string{user.RoleTrainer}, true, t3)

	adminToken := app.token(t, admin)
	empty := marchallList(t)

	tests := []httpTest{
		{name: "Auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/api/users", token: app.token(t, trainee), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/api/users", token: adminToken,
			wantData: marchallList(t, usr2, trainee, owner, naughty, usr1, admin, trainer),
		},
		// filtering
		{name: "search (unknown)", path: path("lol", "", time.Time{}, time.Time{}, nil), token: adminToken, wantData: empty},
		{
			name: "search=USE", path: path("USE", "", time.Time{}, time.Time{}, nil),
			token: adminToken, wantData: marchallList(t, usr2, trainee, usr1),
		},
		{name: "role (unknown)", path: path("", "", time.Time{}, time.Time{}, nil, "lol"), token: adminToken, wantData: empty},
		{
			name: "role=admin:", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleAdmin),
			token: adminToken, wantData: marchallList(t, owner, admin),
		},
		{
			name: "role=trainer:", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleTrainer),
			token: adminToken, wantData: marchallList(t, trainer),
		},
		{
			name: "role=trainer:,trainee:", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleTrainer, user.RoleTrainee),
			token: adminToken, wantData: marchallList(t, trainee, naughty, trainer),
		},
		{
			name: "is_active=true", path: path("", "", time.Time{}, time.Time{}, bPtr(true)),
			token: adminToken, wantData: marchallList(t, usr2, trainee, owner, usr1, admin, trainer),
		},
		{name: "is_active=false", path: path("", "", time.Time{}, time.Time{}, bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{
			name: "created_from (UTC)", path: path("", "", t1.UTC(), time.Time{}, nil),
			token: adminToken, wantData: marchallList(t, usr1, admin, trainer),
		},
		{
			name: "created_from (curr TZ)", path: path("", "", t1, time.Time{}, nil),
			token: adminToken, wantData: marchallList(t, usr1, admin, trainer),
		},
		{
			name: "created_to (curr TZ)", path: path("", "", time.Time{}, t2, nil),
			token: adminToken, wantData: marchallList(t, usr2, trainee, owner, naughty, usr1, admin),
		},
		{name: "created_from - created_to (empty)", path: path("", "", t4, t5, nil), token: adminToken, wantData: empty},
		{name: "created_from - created_to (found)", path: path("", "", t1, t2, nil), token: adminToken, wantData: marchallList(t, usr1, admin)},
		{
			name: "created_from (invalid)", path: "/api/users?created_from=lol", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"created_from": "invalid date-time, RFC3339 expected"}),
		},
		{name: "all combo (empty)", path: path("USE", "", t1, t5, bPtr(true), user.RoleAdminOwner), token: adminToken, wantData: empty},
		{
			name: "all combo (found)", path: path("trai", "", t1, t5, bPtr(true), user.RoleTrainer),
			token: adminToken, wantData: marchallList(t, trainer),
		},
		// ordering
		{
			name: "order by -created_at", path: path("", "-created_at", time.Time{}, time.Time{}, nil), token: adminToken,
			wantData: marchallList(t, trainer, admin, usr1, naughty, owner, trainee, usr2),
		},
		{
			name: "order by is_active,-name", path: path("", "is_active,-name", time.Time{}, time.Time{}, nil), token: adminToken,
			wantData: marchallList(t, naughty, usr1, trainer, owner, usr2, trainee, admin),
		},
		{
			name: "order by -is_active,name", path: path("", "-is_active,name", time.Time{}, time.Time{}, nil), token: adminToken,
			wantData: marchallList(t, admin, trainee, usr2, owner, trainer, usr1, naughty),
		},
		// filtering & ordering
		{
			name: "filtering & ordering", path: path("", "name", time.Time{}, time.Time{}, nil, user.RoleTrainer, user.RoleTrainee), token: adminToken,
			wantData: marchallList(t, trainee, naughty, trainer),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
	}
	app.run(t, tests)
}

func Test_userApi_userLogin(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, app.UserRepo, "Hero", "hero", "hero@test.cd", "LolC@t123", []string{user.RoleTrainee}, true)
	testutil.CreateUser(t, app.UserRepo, "N Dog", "ndog", "ndog@test.cd", "LolC@t123", []string{user.RoleTrainee}, false)

	reqMsg := "this field is required"
	failed := marchallObj(t, httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": reqMsg, "password": reqMsg}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest, wantData: failed,
			body: marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: "LolC@t123"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest, wantData: failed,
			body: marchallObj(t, echoapi.LoginRequest{Username: "hero", Password: "lol"}),
		},
		{
			name: "inactive user", wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
			body: marchallObj(t, echoapi.LoginRequest{Username: "ndog", Password: "LolC@t123"}),
		},
		{name: "by username", body: marchallObj(t, echoapi.LoginRequest{Username: " HERO ", Password: "LolC@t123"})},
		{name: "by email", body: marchallObj(t, echoapi.LoginRequest{Username: "hero@test.cd", Password: "LolC@t123"})},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/users/login", tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var resp echoapi.LoginResponse
				unmarshal(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	usr, err := app.UserSvc.GetByUsername(context.Background(), "hero")
	require.NoError(t, err)
	assert.False(t, usr.LastLogin.IsZero(), "last login not recorded")
}

func Test_userApi_userRefreshToken(t *testing.T) {
	app := setup(t)

	naughty := testutil.CreateUser(t, app.UserRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleTrainee}, false) // 😂
	trainee := testutil.CreateUser(t, app.UserRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleTrainee}, true)

	// older than the refresh threshold
	oriat := time.Now().Add(-2 * app.Conf.Server.JWTRefreshExpirationDelta).Unix()
	unrefreshableToken, err := app.auth.GenerateToken(app.auth.UserClaims(trainee, oriat))
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: app.token(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: app.token(t, trainee), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/api/users/token-refresh", tt.token)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var resp echoapi.LoginResponse
				unmarshal(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userResetPassword(t *testing.T) {
	app := setup(t)

	trainee := testutil.CreateUser(t, app.UserRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleTrainee}, true)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})
	pathRegex := regexp.MustCompile("/password-reset/.+/.+")

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: strings.ToUpper(trainee.Email)}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: trainee.Name, Address: trainee.Email}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()

			req, rec := newRequest(http.MethodPost, "/api/users/password-reset", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			extra, ok := tt.extra.(extraTest)
			if !ok {
				return
			}
			msgs := emailsvc.GetSentMessages()
			if !extra.emailSent {
				assert.Empty(t, msgs)
				return
			}
			require.Len(t, msgs, 1)
			msg := msgs[0]
			assert.Equal(t, extra.to, msg.To[0])
			assert.Contains(t, msg.TextContent, extra.to.Name)
			assert.Contains(t, msg.HTMLContent, extra.to.Name)
			assert.Regexp(t, pathRegex, msg.TextContent)
			assert.Regexp(t, pathRegex, msg.HTMLContent)
		})
	}
}

func Test_userApi_userConfirmPasswordReset(t *testing.T) {
	app := setup(t)

	trainee := testutil.CreateUser(t, app.UserRepo, "Hero", "hero", "user3@test.cd", "lol", []string{user.RoleTrainee}, true)
	validUID := user.EncodeUID(trainee)
	validToken, err := user.MakeToken(trainee, app.Conf.SecretKey)
	require.NoError(t, err)

	reqMsg := "this field is required"
	body := func(token, uid, pwd, confirm string) []byte {
		return marchallObj(t, user.ResetUserPassword{Token: token, UID: uid, Password: pwd, PasswordConfirm: confirm})
	}
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: reqMsg, PasswordConfirm: reqMsg}),
		},
		{
			name: "invalid pwd: min len", wantCode: http.StatusBadRequest, body: body("lol", "lol", "lol", "lol"),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 8 characters"}),
		},
		{
			name: "invalid pwd: no whitespace", wantCode: http.StatusBadRequest, body: body("lol", "lol", "l o loll", "l o loll"),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must not contain whitespace"}),
		},
		{
			name: "invalid pwd: not all numeric", wantCode: http.StatusBadRequest, body: body("lol", "lol", "12345678", "12345678"),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password cannot be entirely numeric"}),
		},
		{
			name: "invalid pwd: complexity", wantCode: http.StatusBadRequest, body: body("lol", "lol", "lol12345", "lol12345"),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest, body: body("lol", "lol", "LolC@t123", "lol"),
			wantData: marchallObj(t, user.ResetUserPassword{PasswordConfirm: "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest, body: body("lol", "bG9s", "LolC@t123", "LolC@t123"),
			wantData: marchallObj(t, user.ResetUserPassword{UID: "invalid uid"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest, body: body("HE4TS-sigsig-sig", validUID, "LolC@t123", "LolC@t123"),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "invalid token"}),
		},
		{
			name: "valid token", wantCode: http.StatusOK, body: body(validToken, validUID, "LolC@t123", "LolC@t123"),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "token used", wantCode: http.StatusBadRequest, body: body(validToken, validUID, "LolC@t1234", "LolC@t1234"),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "invalid token"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/users/password-reset-confirm", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				refreshed, err := app.UserRepo.GetUser(context.Background(), user.GetFilter{ID: trainee.ID})
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshed.PasswordHash, trainee.PasswordHash), "password not updated")
				assert.NoError(t, refreshed.CheckPassword("LolC@t123"))
			}
		})
	}
}

func Test_userApi_userCreate(t *testing.T) {
	app := setup(t)

	admin := app.Admin(t, "admin")
	trainer := app.Trainer(t, "trainer")
	app.Trainee(t, "taken")
	adminToken := app.token(t, admin)

	newUser := func(name, uname, email string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name: name, Username: uname, Email: email, Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: roles,
		})
	}
	tests := []httpTest{
		{name: "Admin required", token: app.token(t, trainer), body: newUser("Lol", "lol", ""), wantCode: http.StatusForbidden},
		{
			name: "username or email", token: adminToken, body: newUser("Lol", "", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "one of username or email is required",
				"email":    "one of username or email is required",
			}),
		},
		{
			name: "invalid roles", token: adminToken, body: newUser("Lol", "lol", "", "lol"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "invalid roles"}),
		},
		{
			name: "role above own", token: adminToken, body: newUser("Lol", "lol", "", user.RoleAdminOwner), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{name: "username taken", token: adminToken, body: newUser("Lol", "TAKEN", ""), wantCode: http.StatusBadRequest},
		{name: "created", token: adminToken, body: newUser("New Trainee", "newbie", "newbie@test.cd", user.RoleTrainee), wantCode: http.StatusCreated},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/users/register"
	}
	app.run(t, tests)

	usr, err := app.UserSvc.GetByUsername(context.Background(), "newbie")
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleTrainee}, usr.Roles)
	assert.NoError(t, usr.CheckPassword("LolC@t123"))
}

func Test_userApi_userDetail(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateUser(t, app.UserRepo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleAdminOwner}, true)
	admin := app.Admin(t, "admin")
	trainee := app.Trainee(t, "hero")
	other := app.Trainee(t, "other")
	adminToken := app.token(t, admin)
	traineeToken := app.token(t, trainee)

	detail := func(usr user.User) string { return "/api/users/" + usr.ID }
	notFound := marchallObj(t, httpErr{Error: "not found"})
	tests := []httpTest{
		{name: "own profile", method: http.MethodGet, path: detail(trainee), token: traineeToken, wantData: marchallObj(t, trainee)},
		{name: "other profile hidden", method: http.MethodGet, path: detail(other), token: traineeToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "admin sees any", method: http.MethodGet, path: detail(other), token: adminToken, wantData: marchallObj(t, other)},
		{name: "unknown", method: http.MethodGet, path: "/api/users/lol", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "trainee cannot change roles", method: http.MethodPut, path: detail(trainee), token: traineeToken,
			body: marchallObj(t, map[string]interface{}{"roles": []string{user.RoleAdmin}}), wantCode: http.StatusForbidden,
		},
		{name: "trainee cannot delete", method: http.MethodDelete, path: detail(trainee), token: traineeToken, wantCode: http.StatusForbidden},
		{name: "no self delete", method: http.MethodDelete, path: detail(admin), token: adminToken, wantCode: http.StatusForbidden},
		{name: "no delete above own role", method: http.MethodDelete, path: detail(owner), token: adminToken, wantCode: http.StatusForbidden},
		{name: "bulk: no self delete", method: http.MethodDelete, path: "/api/users?id=" + admin.ID + "&id=" + other.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "deleted", method: http.MethodDelete, path: detail(other), token: adminToken, wantCode: http.StatusNoContent},
	}
	app.run(t, tests)

	t.Run("update own name", func(t *testing.T) {
		rec := app.do(http.MethodPut, detail(trainee), traineeToken, marchallObj(t, map[string]string{"name": "  Big Hero "}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		unmarshal(t, rec, &got)
		assert.Equal(t, "Big Hero", got.Name)
		assert.Equal(t, trainee.Username, got.Username)
	})

	t.Run("admin deactivates", func(t *testing.T) {
		rec := app.do(http.MethodPut, detail(trainee), adminToken, marchallObj(t, map[string]interface{}{"is_active": false}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		usr, err := app.UserSvc.GetByID(context.Background(), trainee.ID)
		require.NoError(t, err)
		assert.False(t, usr.Active())
	})

	t.Run("roles", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/users/roles", adminToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}, rec)
	})
}
