package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core/onboarding"
)

func Test_onboardingApi(t *testing.T) {
	app := setup(t)

	admin := app.Admin(t, "admin")
	trainer := app.Trainer(t, "trainer")
	trainee := app.Trainee(t, "hero")
	other := app.Trainee(t, "other")
	adminToken := app.token(t, admin)
	trainerToken := app.token(t, trainer)
	traineeToken := app.token(t, trainee)
	otherToken := app.token(t, other)

	notRequired := false
	createItem := func(t *testing.T, ni onboarding.NewItem) onboarding.Item {
		rec := app.do(http.MethodPost, "/api/onboarding/items", adminToken, marchallObj(t, ni))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var it onboarding.Item
		unmarshal(t, rec, &it)
		return it
	}
	contract := createItem(t, onboarding.NewItem{Title: "Sign contract"})
	laptop := createItem(t, onboarding.NewItem{Title: "  Setup   laptop ", Description: "Install the toolchain"})
	chat := createItem(t, onboarding.NewItem{Title: "Join chat", IsRequired: &notRequired})

	assert.Equal(t, 1, contract.Position)
	assert.True(t, contract.IsRequired)
	assert.True(t, contract.IsActive)
	assert.Equal(t, "Setup laptop", laptop.Title)
	assert.Equal(t, 2, laptop.Position)
	assert.Equal(t, 3, chat.Position)
	assert.False(t, chat.IsRequired)

	items := func(t *testing.T, token, query string) []onboarding.Item {
		rec := app.do(http.MethodGet, "/api/onboarding/items"+query, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res []onboarding.Item
		unmarshal(t, rec, &res)
		return res
	}
	checklist := func(t *testing.T, token, traineeID string) onboarding.Checklist {
		rec := app.do(http.MethodGet, "/api/onboarding/trainees/"+traineeID, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var cl onboarding.Checklist
		unmarshal(t, rec, &cl)
		return cl
	}
	setCompleted := func(t *testing.T, token, traineeID, itemID string, completed bool) onboarding.Checklist {
		body := marchallObj(t, onboarding.SetCompleted{Completed: completed})
		rec := app.do(http.MethodPut, "/api/onboarding/trainees/"+traineeID+"/items/"+itemID, token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var cl onboarding.Checklist
		unmarshal(t, rec, &cl)
		return cl
	}

	t.Run("items", func(t *testing.T) {
		assert.Len(t, items(t, traineeToken, ""), 3)

		rec := app.do(http.MethodPut, "/api/onboarding/items/"+chat.ID, adminToken, []byte(`{"is_active": false}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated onboarding.Item
		unmarshal(t, rec, &updated)
		assert.False(t, updated.IsActive)
		assert.Equal(t, "Join chat", updated.Title)

		active := items(t, traineeToken, "")
		if assert.Len(t, active, 2) {
			assert.Equal(t, contract.ID, active[0].ID)
			assert.Equal(t, laptop.ID, active[1].ID)
		}
		assert.Len(t, items(t, traineeToken, "?all=true"), 2)
		assert.Len(t, items(t, adminToken, "?all=true"), 3)
	})

	tests := []httpTest{
		{
			name:     "authentication required",
			method:   http.MethodGet,
			path:     "/api/onboarding/items",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "trainers cannot create items",
			method:   http.MethodPost,
			path:     "/api/onboarding/items",
			token:    trainerToken,
			body:     []byte(`{"title": "Meet the team"}`),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "title required",
			method:   http.MethodPost,
			path:     "/api/onboarding/items",
			token:    adminToken,
			body:     []byte(`{"title": "   "}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"title": "this field is required"}`),
		},
		{
			name:     "unknown item",
			method:   http.MethodPut,
			path:     "/api/onboarding/items/nope",
			token:    adminToken,
			body:     []byte(`{"title": "Renamed"}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "onboarding item not found"}),
		},
		{
			name:     "checklist hidden from other trainees",
			method:   http.MethodGet,
			path:     "/api/onboarding/trainees/" + trainee.ID,
			token:    otherToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "progress hidden from other trainees",
			method:   http.MethodPut,
			path:     "/api/onboarding/trainees/" + trainee.ID + "/items/" + contract.ID,
			token:    otherToken,
			body:     []byte(`{"completed": true}`),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "inactive item",
			method:   http.MethodPut,
			path:     "/api/onboarding/trainees/" + trainee.ID + "/items/" + chat.ID,
			token:    traineeToken,
			body:     []byte(`{"completed": true}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"item_id": "this item is no longer part of the checklist"}`),
		},
		{
			name:     "not a trainee",
			method:   http.MethodPut,
			path:     "/api/onboarding/trainees/" + trainer.ID + "/items/" + contract.ID,
			token:    adminToken,
			body:     []byte(`{"completed": true}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"trainee_id": "user is not a trainee"}`),
		},
		{
			name:     "unknown trainee",
			method:   http.MethodGet,
			path:     "/api/onboarding/trainees/nope",
			token:    adminToken,
			wantCode: http.StatusNotFound,
		},
	}
	app.run(t, tests)

	t.Run("progress", func(t *testing.T) {
		cl := checklist(t, traineeToken, trainee.ID)
		assert.Equal(t, trainee.ID, cl.TraineeID)
		assert.Len(t, cl.Items, 2)
		assert.Equal(t, 0, cl.Completed)
		assert.Equal(t, 2, cl.Required)
		assert.Equal(t, float64(0), cl.Percent)

		cl = setCompleted(t, traineeToken, trainee.ID, contract.ID, true)
		assert.Equal(t, 1, cl.Completed)
		assert.Equal(t, float64(50), cl.Percent)
		if assert.Len(t, cl.Items, 2) {
			assert.True(t, cl.Items[0].Completed)
			assert.NotNil(t, cl.Items[0].CompletedAt)
			assert.Empty(t, cl.Items[0].VerifiedBy)
			assert.False(t, cl.Items[1].Completed)
			assert.Nil(t, cl.Items[1].CompletedAt)
		}

		// staff toggles are verified
		cl = setCompleted(t, trainerToken, trainee.ID, laptop.ID, true)
		assert.Equal(t, 2, cl.Completed)
		assert.Equal(t, float64(100), cl.Percent)
		if assert.Len(t, cl.Items, 2) {
			assert.Equal(t, trainer.ID, cl.Items[1].VerifiedBy)
		}
		assert.Equal(t, cl, checklist(t, adminToken, trainee.ID))

		cl = setCompleted(t, traineeToken, trainee.ID, contract.ID, false)
		assert.Equal(t, 1, cl.Completed)
		assert.Equal(t, float64(50), cl.Percent)

		// other trainees are unaffected
		assert.Equal(t, 0, checklist(t, otherToken, other.ID).Completed)
	})

	t.Run("delete item", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/api/onboarding/items/"+laptop.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		cl := checklist(t, traineeToken, trainee.ID)
		assert.Len(t, cl.Items, 1)
		assert.Equal(t, 0, cl.Completed)
		assert.Equal(t, 1, cl.Required)

		rec = app.do(http.MethodDelete, "/api/onboarding/items/"+laptop.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})
}
