package api

import "github.com/gouveags/moviescore/cmd/identity"

type registerRequest struct {
	Email       string `json:"email" validate:"required,max=320"`
	DisplayName string `json:"displayName" validate:"required,max=120"`
	Password    string `json:"password" validate:"required,max=1024"`
}

type loginRequest struct {
	Email        string `json:"email" validate:"required,max=320"`
	Password     string `json:"password" validate:"required,max=1024"`
	TOTPCode     string `json:"totpCode,omitempty" validate:"omitempty,max=16"`
	RecoveryCode string `json:"recoveryCode,omitempty" validate:"omitempty,max=64"`
}

type recoveryRequest struct {
	Email string `json:"email" validate:"required,max=320"`
}

type recoveryConfirmRequest struct {
	ResetToken  string `json:"resetToken" validate:"required,max=512"`
	NewPassword string `json:"newPassword" validate:"required,max=1024"`
}

type totpRequest struct {
	TOTPCode string `json:"totpCode" validate:"required,max=16"`
}

type userResponse struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	MFAEnabled  bool   `json:"mfaEnabled"`
}

type userEnvelope struct {
	User userResponse `json:"user"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type recoveryRequestResponse struct {
	OK         bool   `json:"ok"`
	ResetToken string `json:"resetToken,omitempty"`
}

type twoFactorSetupResponse struct {
	SetupSecret string `json:"setupSecret"`
	OTPAuthURL  string `json:"otpauthUrl"`
}

type recoveryCodesResponse struct {
	RecoveryCodes []string `json:"recoveryCodes"`
}

func toUserResponse(p identity.Profile) userResponse {
	return userResponse{
		UserID:      p.UserID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		MFAEnabled:  p.MFAEnabled,
	}
}
