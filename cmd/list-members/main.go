package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// list-members prints the open_id of every member in a chat. Use it to
// find the value for ADMIN_OPEN_ID or the IDs to pass to saveuser.
func main() {
	godotenv.Load()

	appID := os.Getenv("FEISHU_APP_ID")
	appSecret := os.Getenv("FEISHU_APP_SECRET")
	if appID == "" || appSecret == "" {
		fmt.Println("Error: FEISHU_APP_ID and FEISHU_APP_SECRET must be set")
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: list-members <chat_id>")
		os.Exit(1)
	}
	chatID := os.Args[1]

	token, err := getTenantToken(appID, appSecret)
	if err != nil {
		fmt.Printf("Failed to get token: %v\n", err)
		os.Exit(1)
	}

	members, err := getChatMembers(token, chatID)
	if err != nil {
		fmt.Printf("Failed to list members: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d members in %s:\n", len(members), chatID)
	for i, m := range members {
		fmt.Printf("  %d. %s  %s\n", i+1, m.MemberID, m.Name)
	}
}

func getTenantToken(appID, appSecret string) (string, error) {
	body := fmt.Sprintf(`{"app_id":"%s","app_secret":"%s"}`, appID, appSecret)
	resp, err := http.Post(
		"https://open.feishu.cn/open-apis/auth/v3/tenant_access_token/internal",
		"application/json",
		strings.NewReader(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Code != 0 {
		return "", fmt.Errorf("auth failed: %s", result.Msg)
	}
	return result.TenantAccessToken, nil
}

type chatMember struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
}

func getChatMembers(token, chatID string) ([]chatMember, error) {
	var members []chatMember
	pageToken := ""

	for {
		url := fmt.Sprintf("https://open.feishu.cn/open-apis/im/v1/chats/%s/members?member_id_type=open_id&page_size=100",
			chatID)
		if pageToken != "" {
			url += "&page_token=" + pageToken
		}

		req, _ := http.NewRequest("GET", url, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}

		var result struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
			Data struct {
				Items     []chatMember `json:"items"`
				HasMore   bool         `json:"has_more"`
				PageToken string       `json:"page_token"`
			} `json:"data"`
		}
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if result.Code != 0 {
			return nil, fmt.Errorf("API error: %s", result.Msg)
		}

		members = append(members, result.Data.Items...)
		if !result.Data.HasMore {
			return members, nil
		}
		pageToken = result.Data.PageToken
	}
}
