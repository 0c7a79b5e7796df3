package capture

import (
	"bytes"
	"context"

	"checkin-service/pkg/client"
)

// HTTPSubmitter 通过 HTTP 客户端提交
type HTTPSubmitter struct {
	Client *client.Client
}

// Submit 以 multipart 表单提交
func (h HTTPSubmitter) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	resp, err := h.Client.CheckIn(ctx, client.CheckInRequest{
		Username:  sub.Username,
		CheckType: sub.CheckType,
		Latitude:  sub.Location.Latitude,
		Longitude: sub.Location.Longitude,
		PhotoName: client.DefaultPhotoName,
		Photo:     bytes.NewReader(sub.Photo.Data),
	})
	if err != nil {
		return nil, err
	}
	return &Receipt{Message: resp.Message, RecordID: resp.RecordID}, nil
}

// StaticLocator 固定位置
type StaticLocator Location

// Locate 返回固定位置（ctx 已结束时返回错误）
func (l StaticLocator) Locate(ctx context.Context) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	return Location(l), nil
}
