/*
Package gemini adapts the native Gemini generateContent shape to the
imaging.Provider interface.

Generation and editing go through the multimodal generateContent endpoint
with inlineData parts; segmentation uses the same endpoint with a JSON
response MIME type and parses the structured mask list the model returns.
*/
package gemini
