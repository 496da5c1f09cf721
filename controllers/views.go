package controllers

import (
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

type postView struct {
	models.Post
	ImageURL string `json:"image_url,omitempty"`
	URL      string `json:"url"`
}

func newPostView(images *utils.ImageStore) func(models.Post) postView {
	return func(p models.Post) postView {
		return postView{
			Post:     p,
			ImageURL: images.PublicURL(p.Image),
			URL:      postURL(p.Author.Username, p.ID),
		}
	}
}

func postPage(images *utils.ImageStore, page utils.Page[models.Post]) utils.Page[postView] {
	return utils.MapPage(page, newPostView(images))
}
