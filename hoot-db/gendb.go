package main

import (
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/hootsocial/hoot/server/auth"
	"github.com/hootsocial/hoot/server/store"
	"github.com/hootsocial/hoot/server/store/types"
)

// Data is the format of the sample data file.
type Data struct {
	Users []struct {
		CreatedAt string      `json:"createdAt"`
		Username  string      `json:"username"`
		Public    interface{} `json:"public"`
	} `json:"users"`
	Posts []struct {
		CreatedAt string `json:"createdAt"`
		Author    string `json:"author"`
		Body      string `json:"body"`
		Comments  []struct {
			CreatedAt string `json:"createdAt"`
			Author    string `json:"author"`
			Body      string `json:"body"`
		} `json:"comments"`
		Likes []string `json:"likes"`
	} `json:"posts"`
}

// getCreatedTime converts a negative duration offset like "-140h" into an
// absolute timestamp in the past.
func getCreatedTime(delta string) time.Time {
	if dd, err := time.ParseDuration(delta); err == nil && delta != "" {
		return types.TimeNow().Add(dd)
	}
	return types.TimeNow()
}

func genDb(data *Data) {
	authHandler := store.Store.GetAuthHandler("token")
	if authHandler == nil {
		log.Fatalln("Token authenticator is not registered")
	}

	nameIndex := make(map[string]types.Uid, len(data.Users))

	log.Println("Generating users...")

	for _, uu := range data.Users {
		user := types.User{
			Username: uu.Username,
			Public:   uu.Public,
		}
		user.CreatedAt = getCreatedTime(uu.CreatedAt)

		if _, err := store.Users.Create(&user); err != nil {
			log.Fatalln("Failed to create user:", err)
		}
		nameIndex[uu.Username] = user.Uid()

		// Issue a login token so the sample accounts are usable right away.
		token, expires, err := authHandler.GenSecret(&auth.Rec{
			Uid:       user.Uid(),
			AuthLevel: auth.LevelAuth,
		})
		if err != nil {
			log.Fatalln("Failed to generate token:", err)
		}

		fmt.Printf("usr;%s;%s;%s;%s\n", uu.Username, user.Id,
			base64.StdEncoding.EncodeToString(token), expires.Format(time.RFC3339))
	}

	log.Println("Generating posts...")

	for _, pp := range data.Posts {
		authorUid, ok := nameIndex[pp.Author]
		if !ok {
			log.Fatalln("Unknown post author:", pp.Author)
		}

		post := types.Post{
			Body:     pp.Body,
			Username: pp.Author,
			User:     authorUid.String(),
		}
		post.CreatedAt = getCreatedTime(pp.CreatedAt)

		// Comments are stored most recent first.
		for i := len(pp.Comments) - 1; i >= 0; i-- {
			cc := pp.Comments[i]
			if _, ok := nameIndex[cc.Author]; !ok {
				log.Fatalln("Unknown comment author:", cc.Author)
			}
			post.Comments = append([]types.Comment{{
				Id:        store.GenerateCommentId(),
				Body:      cc.Body,
				Username:  cc.Author,
				CreatedAt: getCreatedTime(cc.CreatedAt),
			}}, post.Comments...)
		}

		for _, username := range pp.Likes {
			if _, ok := nameIndex[username]; !ok {
				log.Fatalln("Unknown liker:", username)
			}
			post.Likes = append(post.Likes, types.Like{
				Username:  username,
				CreatedAt: getCreatedTime(pp.CreatedAt),
			})
		}

		if _, err := store.Posts.Create(&post); err != nil {
			log.Fatalln("Failed to create post:", err)
		}

		fmt.Printf("post;%s;%s;%d comments;%d likes\n", pp.Author, post.Id,
			len(post.Comments), len(post.Likes))
	}

	log.Println("All done.")
}
