package classifier

import (
	"encoding/json"
	"fmt"
)

var systemPrompts = map[Role]string{
	RoleGridPage: "You are a helpful assistant that extracts the Product grid page specific links from a given set of links. " +
		"Product grid links are unique and take the user directly to a page listing products when clicked. " +
		"Reply with a JSON object of the form {\"links\": [...]} using only links from the input. " +
		"If there are no such links, reply with {\"links\": []}.",
	RoleProductPage: "You are a helpful assistant that extracts the Product specific links from a given set of links. " +
		"Product links are unique and long, may contain a product id, and take the user directly to a single product when clicked. " +
		"Reply with a JSON object of the form {\"links\": [...]} using only links from the input. " +
		"If there are no such links, reply with {\"links\": []}.",
}

// userPrompt 把链接列表编码为 JSON 数组, 避免模型改写URL
func userPrompt(urls []string) string {
	data, _ := json.Marshal(urls)
	return fmt.Sprintf("Here are the list of Links: %s", data)
}
