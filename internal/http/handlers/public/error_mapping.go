package public

import (
	"errors"

	"github.com/tabiguide-next/internal/http/handlers/shared"
	"github.com/tabiguide-next/internal/http/response"
	"github.com/tabiguide-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError maps a service error onto an API error response
type mappedHandlerError struct {
	target error
	code   int
	tag    string
	msg    string
}

func respondError(c *gin.Context, code int, tag, msg string, err error) {
	shared.RespondError(c, code, tag, msg, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			// keep the cause in the log, the client only sees msg
			respondError(c, rule.code, rule.tag, rule.msg, err)
			return
		}
	}
	respondError(c, response.CodeInternal, response.TagInternal, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var referralValidationErrorRules = []mappedHandlerError{
	{target: service.ErrMissingRequiredField, code: response.CodeBadRequest, tag: response.TagValidation, msg: "guideId and sponsorStoreId are required"},
	{target: service.ErrInvalidCommissionStatus, code: response.CodeBadRequest, tag: response.TagValidation, msg: "commissionStatus must be one of pending, approved, paid, cancelled"},
	{target: service.ErrInvalidField, code: response.CodeBadRequest, tag: response.TagValidation, msg: "Invalid field value"},
	{target: service.ErrInvalidPatch, code: response.CodeBadRequest, tag: response.TagValidation, msg: "Invalid referral update"},
}

var referralStorageErrorRules = []mappedHandlerError{
	{target: service.ErrStorageRead, code: response.CodeInternal, tag: response.TagStorage, msg: "Failed to read referrals"},
	{target: service.ErrStorageWrite, code: response.CodeInternal, tag: response.TagStorage, msg: "Failed to save referral"},
}

var referralReadValidationErrorRules = []mappedHandlerError{
	{target: service.ErrMissingRequiredField, code: response.CodeBadRequest, tag: response.TagValidation, msg: "Identifier is required"},
}

var referralUpdateExtraErrorRules = []mappedHandlerError{
	{target: service.ErrReferralNotFound, code: response.CodeNotFound, tag: response.TagNotFound, msg: "Referral not found"},
}

func respondReferralCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(referralValidationErrorRules, referralStorageErrorRules), "Failed to create referral")
}

func respondReferralUpdateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(referralUpdateExtraErrorRules, referralValidationErrorRules, referralStorageErrorRules), "Failed to update referral")
}

func respondReferralReadError(c *gin.Context, err error, fallbackMsg string) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(referralReadValidationErrorRules, referralStorageErrorRules), fallbackMsg)
}
