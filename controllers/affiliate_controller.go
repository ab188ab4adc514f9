package controllers

import (
	"strconv"

	"affiliate/dto"
	apperrors "affiliate/errors"
	"affiliate/response"
	"affiliate/services"
	"affiliate/services/logger"

	"github.com/gin-gonic/gin"
)

type AffiliateController struct {
	Affiliates  *services.AffiliateService
	Attribution *services.AttributionService
	Logger      logger.Logger
}

func NewAffiliateController(affiliates *services.AffiliateService, attribution *services.AttributionService, log logger.Logger) AffiliateController {
	return AffiliateController{
		Affiliates:  affiliates,
		Attribution: attribution,
		Logger:      log,
	}
}

// handleError maps service failures onto the HTTP envelope. Infrastructure
// failures get logged with the request correlation id and surface without
// internal detail.
func (ac AffiliateController) handleError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		ac.Logger.Error("[req %s] unexpected error: %v", c.GetString("requestId"), err)
		response.ServerError(c)
		return
	}
	if !appErr.Code.IsClientError() {
		ac.Logger.Error("[req %s] %v", c.GetString("requestId"), appErr)
	}
	response.AppError(c, appErr)
}

// ==================== Registration ====================

// Register handles POST /api/affiliate/register.
func (ac AffiliateController) Register(c *gin.Context) {
	var req dto.RegisterAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "walletAddress is required")
		return
	}
	referrer, err := ac.Affiliates.RegisterAffiliate(c.Request.Context(), req.WalletAddress)
	if err != nil {
		ac.handleError(c, err)
		return
	}
	response.OK(c, gin.H{
		"success":       true,
		"referralCode":  referrer.ReferralCode,
		"walletAddress": referrer.WalletAddress,
	})
}

// Track handles POST /api/affiliate/track.
func (ac AffiliateController) Track(c *gin.Context) {
	var req dto.TrackReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "referralCode and refereeAddress are required")
		return
	}
	if _, err := ac.Affiliates.TrackReferral(c.Request.Context(), req.ReferralCode, req.RefereeAddress); err != nil {
		ac.handleError(c, err)
		return
	}
	response.Success(c)
}

// ==================== Statistics ====================

// Stats handles GET /api/affiliate/stats?walletAddress=…
func (ac AffiliateController) Stats(c *gin.Context) {
	stats, err := ac.Affiliates.Stats(c.Request.Context(), c.Query("walletAddress"))
	if err != nil {
		ac.handleError(c, err)
		return
	}
	response.OK(c, stats)
}

// Referrals handles GET /api/affiliate/referrals?walletAddress=…
func (ac AffiliateController) Referrals(c *gin.Context) {
	referrals, err := ac.Affiliates.Referrals(c.Request.Context(), c.Query("walletAddress"))
	if err != nil {
		ac.handleError(c, err)
		return
	}
	response.OK(c, referrals)
}

// Payouts handles GET /api/affiliate/payouts?walletAddress=…
func (ac AffiliateController) Payouts(c *gin.Context) {
	payouts, err := ac.Affiliates.Payouts(c.Request.Context(), c.Query("walletAddress"))
	if err != nil {
		ac.handleError(c, err)
		return
	}
	response.OK(c, payouts)
}

// ==================== Lookups ====================

// LookupCode handles GET /api/affiliate/lookup/code/:code.
func (ac AffiliateController) LookupCode(c *gin.Context) {
	referrer, err := ac.Affiliates.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		ac.handleError(c, err)
		return
	}
	if referrer == nil {
		response.OK(c, gin.H{"valid": false})
		return
	}
	response.OK(c, gin.H{
		"valid":         true,
		"walletAddress": referrer.WalletAddress,
	})
}

// LookupWallet handles GET /api/affiliate/lookup/wallet/:address.
func (ac AffiliateController) LookupWallet(c *gin.Context) {
	referrer, err := ac.Affiliates.FindByWallet(c.Request.Context(), c.Param("address"))
	if err != nil {
		ac.handleError(c, err)
		return
	}
	if referrer == nil {
		response.OK(c, gin.H{"registered": false})
		return
	}
	response.OK(c, gin.H{
		"registered":   true,
		"referralCode": referrer.ReferralCode,
		"tier":         referrer.Tier,
	})
}

// ==================== Volume attribution (internal) ====================

// AttributeVolume handles POST /api/affiliate/internal/volume.
// traderAddress and volumeUsd arrive as query parameters.
func (ac AffiliateController) AttributeVolume(c *gin.Context) {
	trader := c.Query("traderAddress")
	if trader == "" {
		response.BadRequest(c, "traderAddress is required")
		return
	}
	volume, err := strconv.ParseFloat(c.Query("volumeUsd"), 64)
	if err != nil {
		response.BadRequest(c, "volumeUsd must be a number")
		return
	}
	if err := ac.Attribution.AttributeVolume(c.Request.Context(), trader, volume); err != nil {
		ac.handleError(c, err)
		return
	}
	response.Success(c)
}
