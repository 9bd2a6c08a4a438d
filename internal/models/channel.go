package models

import (
	"time"

	"gorm.io/gorm"
)

type ChannelType string

const (
	ChannelTypeDirect  ChannelType = "direct"
	ChannelTypeGroup   ChannelType = "group"
	ChannelTypeRide    ChannelType = "ride"    // rider/driver conversation bound to a ride
	ChannelTypeSupport ChannelType = "support" // user and support staff
)

/** --------------------ENTITIES-------------------- */
type Channel struct {
	gorm.Model
	Name    string      `gorm:"not null" json:"name"`
	OwnerID uint        `gorm:"not null;index" json:"ownerId"`
	Type    ChannelType `gorm:"not null;type:varchar(20)" json:"type"`
	RideID  *uint       `gorm:"index" json:"rideId,omitempty"`

	Members []*User `gorm:"many2many:channel_members" json:"members,omitempty"`
}

/** -------------------- DTOs -------------------- */
type CreateChannelRequest struct {
	Name    string      `json:"name"`
	Type    ChannelType `json:"type" binding:"required,oneof=direct group ride support"`
	RideID  *uint       `json:"rideId,omitempty"`
	UserIDs []uint      `json:"userIds"`
}

type MemberRequest struct {
	UserID uint `json:"userId" binding:"required"`
}

type ChannelResponse struct {
	ID        uint           `json:"id"`
	Name      string         `json:"name"`
	Type      ChannelType    `json:"type"`
	OwnerID   uint           `json:"ownerId"`
	RideID    *uint          `json:"rideId,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	Members   []UserResponse `json:"members,omitempty"`
}

func (c *Channel) ToResponse() ChannelResponse {
	resp := ChannelResponse{
		ID:        c.ID,
		Name:      c.Name,
		Type:      c.Type,
		OwnerID:   c.OwnerID,
		RideID:    c.RideID,
		CreatedAt: c.CreatedAt,
	}
	for _, m := range c.Members {
		resp.Members = append(resp.Members, m.ToResponse())
	}
	return resp
}
