package controllers_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"lifeintheuk/backend/models"
	"lifeintheuk/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func submitBody(answers []map[string]interface{}, timeTaken int) map[string]interface{} {
	return map[string]interface{}{
		"answers":   answers,
		"timeTaken": timeTaken,
	}
}

func TestStartTestShortPool(t *testing.T) {
	user := createUser()

	// Default count is 24 but only 10 questions exist; all of them come back
	resp := doRequest(t, "GET", "/api/tests/start", nil, &user)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)
	questions := result["questions"].([]interface{})
	assert.Len(t, questions, 10)
	assert.Equal(t, float64(10), result["totalQuestions"])
}

func TestStartTestCustomCount(t *testing.T) {
	user := createUser()

	resp := doRequest(t, "GET", "/api/tests/start?count=3", nil, &user)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)
	assert.Len(t, result["questions"], 3)
	assert.Equal(t, float64(3), result["totalQuestions"])
}

func TestStartTestNeverLeaksGradingData(t *testing.T) {
	user := createUser()

	resp := doRequest(t, "GET", "/api/tests/start", nil, &user)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.NoError(t, err)
	assert.False(t, strings.Contains(string(body), "correct_answer"))
	assert.False(t, strings.Contains(string(body), "explanation"))
	assert.True(t, strings.Contains(string(body), "question_text"))
}

func TestPracticeQuestionsChapterFilter(t *testing.T) {
	user := createUser()

	var chapterQuestionIDs []uint
	db.Model(&models.Question{}).
		Where("chapter_id = ?", chapter2.ID).Pluck("id", &chapterQuestionIDs)
	assert.Len(t, chapterQuestionIDs, 3)

	resp := doRequest(t, "GET", fmt.Sprintf("/api/tests/practice/%d", chapter2.ID), nil, &user)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var questions []map[string]interface{}
	decodeBody(t, resp, &questions)
	assert.Len(t, questions, 3)

	allowed := make(map[float64]bool)
	for _, id := range chapterQuestionIDs {
		allowed[float64(id)] = true
	}
	for _, q := range questions {
		assert.True(t, allowed[q["id"].(float64)])
	}
}

func TestPracticeUnknownChapter(t *testing.T) {
	user := createUser()

	resp := doRequest(t, "GET", "/api/tests/practice/99999", nil, &user)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSubmitTestScoring(t *testing.T) {
	user := createUser()

	// Q1's correct answer is A, Q2's is C; one right, one wrong
	body := submitBody([]map[string]interface{}{
		{"questionId": questionCorrectA.ID, "userAnswer": "A"},
		{"questionId": questionCorrectC.ID, "userAnswer": "B"},
	}, 300)

	resp := doRequest(t, "POST", "/api/tests/submit", body, &user)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)
	assert.Equal(t, float64(1), result["score"])
	assert.Equal(t, float64(2), result["totalQuestions"])
	assert.Equal(t, 50.0, result["percentage"])
	assert.Equal(t, false, result["passed"])

	// Per-question review comes back without a second round trip
	details := result["results"].([]interface{})
	assert.Len(t, details, 2)
	first := details[0].(map[string]interface{})
	assert.Equal(t, float64(questionCorrectA.ID), first["questionId"])
	assert.Equal(t, "A", first["userAnswer"])
	assert.Equal(t, "A", first["correctAnswer"])
	assert.Equal(t, true, first["isCorrect"])
	second := details[1].(map[string]interface{})
	assert.Equal(t, "C", second["correctAnswer"])
	assert.Equal(t, false, second["isCorrect"])

	// Both rows persisted under the header
	testResultID := uint(result["testResultId"].(float64))
	var stored models.TestResult
	assert.NoError(t, db.First(&stored, testResultID).Error)
	assert.Equal(t, user.ID, stored.UserID)
	assert.Equal(t, 1, stored.Score)
	assert.Equal(t, 2, stored.TotalQuestions)
	assert.Equal(t, 50.0, stored.Percentage)
	assert.False(t, stored.Passed)
	assert.NotNil(t, stored.TimeTaken)
	assert.Equal(t, 300, *stored.TimeTaken)

	var rowCount int64
	db.Model(&models.TestQuestion{}).Where("test_result_id = ?", testResultID).Count(&rowCount)
	assert.Equal(t, int64(2), rowCount)
}

func TestSubmitPassBoundary(t *testing.T) {
	user := createUser()

	// 3 of 4 correct is exactly the 75% pass mark
	body := submitBody([]map[string]interface{}{
		{"questionId": questionCorrectA.ID, "userAnswer": "A"},
		{"questionId": questionCorrectA.ID, "userAnswer": "A"},
		{"questionId": questionCorrectC.ID, "userAnswer": "C"},
		{"questionId": questionCorrectC.ID, "userAnswer": "D"},
	}, 100)

	resp := doRequest(t, "POST", "/api/tests/submit", body, &user)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)
	assert.Equal(t, 75.0, result["percentage"])
	assert.Equal(t, true, result["passed"])
}

func TestSubmitGradingIsCaseSensitive(t *testing.T) {
	user := createUser()

	body := submitBody([]map[string]interface{}{
		{"questionId": questionCorrectA.ID, "userAnswer": "a"},
	}, 10)

	resp := doRequest(t, "POST", "/api/tests/submit", body, &user)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)
	assert.Equal(t, float64(0), result["score"])
	assert.Equal(t, false, result["passed"])
}

func TestSubmitDropsUnknownQuestions(t *testing.T) {
	user := createUser()

	body := submitBody([]map[string]interface{}{
		{"questionId": questionCorrectA.ID, "userAnswer": "A"},
		{"questionId": 99999, "userAnswer": "B"},
	}, 60)

	resp := doRequest(t, "POST", "/api/tests/submit", body, &user)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)
	assert.Equal(t, float64(1), result["score"])
	assert.Equal(t, float64(1), result["totalQuestions"])
	assert.Equal(t, 100.0, result["percentage"])
	assert.Equal(t, true, result["passed"])
	assert.Len(t, result["results"], 1)

	// The unknown id never reaches the persisted detail rows
	testResultID := uint(result["testResultId"].(float64))
	var rows []models.TestQuestion
	db.Where("test_result_id = ?", testResultID).Find(&rows)
	assert.Len(t, rows, 1)
	assert.Equal(t, questionCorrectA.ID, rows[0].QuestionID)
}

func TestSubmitUnansweredStoredAsNull(t *testing.T) {
	user := createUser()

	body := submitBody([]map[string]interface{}{
		{"questionId": questionCorrectA.ID},
	}, 5)

	resp := doRequest(t, "POST", "/api/tests/submit", body, &user)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)
	assert.Equal(t, float64(0), result["score"])

	testResultID := uint(result["testResultId"].(float64))
	var rows []models.TestQuestion
	db.Where("test_result_id = ?", testResultID).Find(&rows)
	assert.Len(t, rows, 1)
	assert.Nil(t, rows[0].UserAnswer)
	assert.False(t, rows[0].IsCorrect)
}

func TestSubmitRejectsEmptyAnswers(t *testing.T) {
	user := createUser()

	resp := doRequest(t, "POST", "/api/tests/submit",
		submitBody([]map[string]interface{}{}, 0), &user)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// All-unknown submissions grade nothing and are rejected too
	resp = doRequest(t, "POST", "/api/tests/submit",
		submitBody([]map[string]interface{}{
			{"questionId": 99998, "userAnswer": "A"},
		}, 0), &user)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var count int64
	db.Model(&models.TestResult{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	user := createUser()

	req := httptest.NewRequest("POST", "/api/tests/submit", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(sessionCookie(user))

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmitRollsBackOnDetailFailure(t *testing.T) {
	user := createUser()

	// Force the detail insert to fail mid-transaction
	assert.NoError(t, db.Migrator().DropTable(&models.TestQuestion{}))
	defer func() {
		assert.NoError(t, utils.Migrate(db))
	}()

	body := submitBody([]map[string]interface{}{
		{"questionId": questionCorrectA.ID, "userAnswer": "A"},
	}, 30)

	resp := doRequest(t, "POST", "/api/tests/submit", body, &user)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)
	assert.Equal(t, "Failed to submit test", result["error"])

	// The header insert succeeded inside the transaction; rollback must
	// leave no orphan behind
	var count int64
	db.Model(&models.TestResult{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestHistoryNewestFirstAndLimited(t *testing.T) {
	user := createUser()

	for i := 0; i < 11; i++ {
		answer := "A"
		if i%2 == 1 {
			answer = "B"
		}
		body := submitBody([]map[string]interface{}{
			{"questionId": questionCorrectA.ID, "userAnswer": answer},
		}, i)
		resp := doRequest(t, "POST", "/api/tests/submit", body, &user)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp := doRequest(t, "GET", "/api/tests/history", nil, &user)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var history []map[string]interface{}
	decodeBody(t, resp, &history)
	assert.Len(t, history, 10)

	// Newest first: ids descend because later attempts get larger ids
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i-1]["id"].(float64), history[i]["id"].(float64))
	}

	// The summary carries everything the dashboard needs
	entry := history[0]
	assert.Contains(t, entry, "score")
	assert.Contains(t, entry, "total_questions")
	assert.Contains(t, entry, "percentage")
	assert.Contains(t, entry, "passed")
	assert.Contains(t, entry, "time_taken")
	assert.Contains(t, entry, "test_date")
}

func TestResultsOwnershipIsolation(t *testing.T) {
	owner := createUser()
	other := createUser()

	body := submitBody([]map[string]interface{}{
		{"questionId": questionCorrectA.ID, "userAnswer": "A"},
		{"questionId": questionCorrectC.ID, "userAnswer": "C"},
	}, 120)
	resp := doRequest(t, "POST", "/api/tests/submit", body, &owner)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var submitted map[string]interface{}
	decodeBody(t, resp, &submitted)
	testResultID := submitted["testResultId"].(float64)
	path := fmt.Sprintf("/api/tests/%.0f/results", testResultID)

	// Another user's attempt reads as not found, never the data
	resp = doRequest(t, "GET", path, nil, &other)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// The owner gets the full review, explanations included
	resp = doRequest(t, "GET", path, nil, &owner)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)
	test := result["test"].(map[string]interface{})
	assert.Equal(t, float64(2), test["score"])
	assert.Equal(t, true, test["passed"])

	questions := result["questions"].([]interface{})
	assert.Len(t, questions, 2)
	first := questions[0].(map[string]interface{})
	assert.Equal(t, "A", first["correct_answer"])
	assert.NotEmpty(t, first["explanation"])
	assert.Equal(t, true, first["is_correct"])
}

func TestResultsUnknownID(t *testing.T) {
	user := createUser()

	resp := doRequest(t, "GET", "/api/tests/99999/results", nil, &user)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
